package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	pages   [][]string
	objects map[string][]byte
	listErr error
	putErr  error
	calls   int
}

func (f *fakeS3) ListObjectsV2(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	page := f.calls
	f.calls++

	out := &s3.ListObjectsV2Output{}
	for _, k := range f.pages[page] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if page+1 < len(f.pages) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String("next")
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()

	t.Run("List Follows Pages", func(t *testing.T) {
		store := NewS3StoreWithClient(&fakeS3{pages: [][]string{{"a.csv", "b.csv"}, {"c.csv"}}}, nil)

		keys := store.List(ctx, "bucket")
		if len(keys) != 3 {
			t.Fatalf("expected 3 keys, got %v", keys)
		}
		if keys[2] != "c.csv" {
			t.Errorf("expected c.csv last, got %s", keys[2])
		}
	})

	t.Run("List Error Returns Empty", func(t *testing.T) {
		store := NewS3StoreWithClient(&fakeS3{listErr: errors.New("access denied")}, nil)

		keys := store.List(ctx, "bucket")
		if keys == nil || len(keys) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", keys)
		}
	})

	t.Run("Get", func(t *testing.T) {
		store := NewS3StoreWithClient(&fakeS3{objects: map[string][]byte{"x.csv": []byte("hello")}}, nil)

		data, ok := store.Get(ctx, "bucket", "x.csv")
		if !ok || string(data) != "hello" {
			t.Errorf("expected hello, got %q (ok=%v)", data, ok)
		}

		if _, ok := store.Get(ctx, "bucket", "missing.csv"); ok {
			t.Error("expected missing key to be absent")
		}
	})

	t.Run("Put", func(t *testing.T) {
		fake := &fakeS3{}
		store := NewS3StoreWithClient(fake, nil)

		path := filepath.Join(t.TempDir(), "up.csv")
		if err := os.WriteFile(path, []byte("time,artist_name,song_name\n"), 0644); err != nil {
			t.Fatalf("failed to write upload file: %v", err)
		}

		if !store.Put(ctx, "bucket", path, "kexp_2024-01-01.csv") {
			t.Fatal("expected upload to succeed")
		}
		if string(fake.objects["kexp_2024-01-01.csv"]) != "time,artist_name,song_name\n" {
			t.Errorf("unexpected uploaded body %q", fake.objects["kexp_2024-01-01.csv"])
		}
	})

	t.Run("Put Failures", func(t *testing.T) {
		store := NewS3StoreWithClient(&fakeS3{putErr: errors.New("boom")}, nil)

		if store.Put(ctx, "bucket", filepath.Join(t.TempDir(), "nope.csv"), "k") {
			t.Error("expected missing local file to fail")
		}

		path := filepath.Join(t.TempDir(), "up.csv")
		_ = os.WriteFile(path, []byte("x"), 0644)
		if store.Put(ctx, "bucket", path, "k") {
			t.Error("expected client error to fail")
		}
	})
}
