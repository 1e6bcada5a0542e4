package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/The-Clarity-Projekt/chat-client/internal/config"
	"github.com/The-Clarity-Projekt/chat-client/internal/model"
)

type fakePutter struct {
	objects map[string][]byte
	err     error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(params.Body)
	f.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestR2WriteOverwritesPath(t *testing.T) {
	putter := &fakePutter{objects: map[string][]byte{}}
	c := &R2Client{s3Client: putter, bucketName: "docs", publicURL: "https://cdn.example.com"}

	doc := &model.Document{ID: "panopto-uni-v1", Title: "first", Metadata: model.DocumentMetadata{Identifier: "panopto-uni-v1"}}
	if err := c.Write(context.Background(), "panopto", doc, "panopto/panopto-uni-v1.json"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	doc.Title = "second"
	if err := c.Write(context.Background(), "panopto", doc, "panopto/panopto-uni-v1.json"); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	if len(putter.objects) != 1 {
		t.Fatalf("expected one object, got %d", len(putter.objects))
	}
	var stored model.Document
	if err := json.Unmarshal(putter.objects["panopto/panopto-uni-v1.json"], &stored); err != nil {
		t.Fatalf("stored object is not a document: %v", err)
	}
	if stored.Title != "second" || stored.Metadata.Identifier != "panopto-uni-v1" {
		t.Errorf("unexpected stored document %+v", stored)
	}
}

func TestR2WriteFailureIsPersistenceFailure(t *testing.T) {
	c := &R2Client{s3Client: &fakePutter{err: errors.New("denied")}, bucketName: "docs"}
	err := c.Write(context.Background(), "panopto", &model.Document{}, "panopto/x.json")
	if !errors.Is(err, model.ErrPersistenceFailure) {
		t.Fatalf("expected PersistenceFailure, got %v", err)
	}
}

func TestR2PublicURL(t *testing.T) {
	c := &R2Client{bucketName: "docs", publicURL: "https://cdn.example.com"}
	if got := c.GetPublicURL("a/b.json"); got != "https://cdn.example.com/a/b.json" {
		t.Errorf("unexpected url %s", got)
	}
	if _, err := NewR2Client(&config.R2Config{}); err == nil {
		t.Errorf("expected incomplete config to fail")
	}
}

func TestR2IsConfigured(t *testing.T) {
	if !(&R2Client{s3Client: &fakePutter{}, bucketName: "docs"}).IsConfigured() {
		t.Errorf("expected client with bucket to be configured")
	}
	if (&R2Client{s3Client: &fakePutter{}}).IsConfigured() {
		t.Errorf("expected client without bucket to be unconfigured")
	}
	if (&R2Client{bucketName: "docs"}).IsConfigured() {
		t.Errorf("expected client without s3 client to be unconfigured")
	}
}
