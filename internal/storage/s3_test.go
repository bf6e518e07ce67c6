package storage

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

type stubPutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (p *stubPutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.input = params
	if params.Body != nil {
		p.body, _ = io.ReadAll(params.Body)
	}
	return &s3.PutObjectOutput{}, p.err
}

type stubPresigner struct {
	key string
}

func (p *stubPresigner) PresignGetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	p.key = *params.Key
	return &v4.PresignedHTTPRequest{URL: "https://archive.example/" + *params.Key + "?sig=1"}, nil
}

func TestS3Archive_ArchiveCheckIns(t *testing.T) {
	putter := &stubPutter{}
	archive := newS3Archive(putter, &stubPresigner{}, "coach-archive", "purges", 0)
	archive.now = func() time.Time { return time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC) }

	records := []domain.CheckIn{
		{ID: "a", ClientID: "c1", Status: domain.StatusCancelled},
		{ID: "b", ClientID: "c2", Status: domain.StatusCompleted},
	}
	key, err := archive.ArchiveCheckIns(context.Background(), "batch-1", records)
	require.NoError(t, err)
	require.Equal(t, "purges/2026/03/04/batch-1.ndjson", key)
	require.Equal(t, "coach-archive", *putter.input.Bucket)
	require.Equal(t, ArchiveContentType, *putter.input.ContentType)
	require.Equal(t, "2", putter.input.Metadata["records"])

	var ids []string
	scanner := bufio.NewScanner(bytes.NewReader(putter.body))
	for scanner.Scan() {
		var c domain.CheckIn
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &c))
		ids = append(ids, c.ID)
	}
	require.Equal(t, []string{"a", "b"}, ids)
}

func TestS3Archive_UploadError(t *testing.T) {
	archive := newS3Archive(&stubPutter{err: errors.New("access denied")}, &stubPresigner{}, "b", "p", time.Minute)
	_, err := archive.ArchiveCheckIns(context.Background(), "batch-2", []domain.CheckIn{{ID: "a"}})
	require.Error(t, err)
}

func TestS3Archive_DownloadURL(t *testing.T) {
	presigner := &stubPresigner{}
	archive := newS3Archive(&stubPutter{}, presigner, "b", "p", time.Minute)

	url, err := archive.DownloadURL(context.Background(), "p/2026/03/04/x.ndjson")
	require.NoError(t, err)
	require.Equal(t, "p/2026/03/04/x.ndjson", presigner.key)
	require.Contains(t, url, "sig=1")
}
