package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeUploader struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	f.input = input
	if input.Body != nil {
		data, _ := io.ReadAll(input.Body)
		f.body = string(data)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &manager.UploadOutput{Location: "https://bucket.s3.amazonaws.com/" + aws.ToString(input.Key)}, nil
}

type fakeObjects struct {
	deleted []string
	err     error
}

func (f *fakeObjects) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(input.Key))
	return &s3.DeleteObjectOutput{}, f.err
}

func TestS3StorageSave(t *testing.T) {
	uploader := &fakeUploader{}
	store := NewS3StorageWithClients(&fakeObjects{}, uploader, "media", "https://cdn.example.com/")

	url, err := store.Save(context.Background(), "/abc123.png", "image/png", strings.NewReader("pixels"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if url != "https://cdn.example.com/abc123.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if aws.ToString(uploader.input.Bucket) != "media" || aws.ToString(uploader.input.ContentType) != "image/png" {
		t.Fatalf("unexpected upload input: %+v", uploader.input)
	}
	if uploader.body != "pixels" {
		t.Fatalf("expected body to be streamed, got %q", uploader.body)
	}
}

func TestS3StorageSaveFallsBackToLocation(t *testing.T) {
	store := NewS3StorageWithClients(&fakeObjects{}, &fakeUploader{}, "media", "")

	url, err := store.Save(context.Background(), "clip.mp4", "", strings.NewReader("frames"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if url != "https://bucket.s3.amazonaws.com/clip.mp4" {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestS3StorageErrors(t *testing.T) {
	objects := &fakeObjects{err: errors.New("access denied")}
	store := NewS3StorageWithClients(objects, &fakeUploader{err: errors.New("timeout")}, "media", "")

	if _, err := store.Save(context.Background(), "", "", strings.NewReader("")); err == nil {
		t.Fatal("expected empty key to fail")
	}
	if _, err := store.Save(context.Background(), "a.png", "", strings.NewReader("x")); err == nil {
		t.Fatal("expected upload error")
	}
	if err := store.Remove(context.Background(), "a.png"); err == nil {
		t.Fatal("expected delete error")
	}
	if len(objects.deleted) != 1 || objects.deleted[0] != "a.png" {
		t.Fatalf("unexpected deletes %v", objects.deleted)
	}
}
