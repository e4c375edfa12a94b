package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeClient struct {
	puts []*s3.PutObjectInput
	fail error
}

func (f *fakeClient) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.puts = append(f.puts, params)
	return &s3.PutObjectOutput{}, nil
}

func TestUpload(t *testing.T) {
	fc := &fakeClient{}
	up := NewUploader(fc, "us-west-2")

	url, err := up.Upload(context.Background(), "receipts", "r1_123.jpg", []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}
	if want := "https://receipts.s3.us-west-2.amazonaws.com/r1_123.jpg"; url != want {
		t.Errorf("url = %s; want %s", url, want)
	}

	if len(fc.puts) != 1 {
		t.Fatalf("puts = %d; want 1", len(fc.puts))
	}
	put := fc.puts[0]
	if *put.Bucket != "receipts" || *put.Key != "r1_123.jpg" || *put.ContentType != "image/jpeg" {
		t.Errorf("put = %+v; want bucket/key/content-type passed through", put)
	}
	body, _ := io.ReadAll(put.Body)
	if string(body) != "img" {
		t.Errorf("body = %q; want img", body)
	}
}

func TestUploadFailure(t *testing.T) {
	fc := &fakeClient{fail: errors.New("denied")}
	up := NewUploader(fc, "us-west-2")

	if _, err := up.Upload(context.Background(), "receipts", "k", []byte("x"), "image/png"); err == nil {
		t.Fatal("Upload = nil; want error")
	}
}
