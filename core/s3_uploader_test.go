package core

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3Client struct {
	inputs []*s3.PutObjectInput
	bodies []string
	err    error
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	m.inputs = append(m.inputs, params)
	m.bodies = append(m.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func TestS3UploaderKey(t *testing.T) {
	u := &S3Uploader{Prefix: "reports/2024"}
	assert.Equal(t, "reports/2024/people.xlsx", u.Key("people.xlsx"))
	assert.Equal(t, "reports/2024/eu/people.xlsx", u.Key(filepath.Join("eu", "people.xlsx")))

	u.Prefix = ""
	assert.Equal(t, "people.xlsx", u.Key("/people.xlsx"))
}

func TestS3UploaderUploadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ok":true}`), 0644))

	client := &mockS3Client{}
	u := &S3Uploader{Client: client, Bucket: "out", Prefix: "runs"}
	require.NoError(t, u.UploadFile(context.Background(), path, u.Key("people.json")))

	require.Len(t, client.inputs, 1)
	assert.Equal(t, "out", *client.inputs[0].Bucket)
	assert.Equal(t, "runs/people.json", *client.inputs[0].Key)
	assert.Equal(t, `{"ok":true}`, client.bodies[0])
}

func TestS3UploaderErrors(t *testing.T) {
	u := &S3Uploader{Client: &mockS3Client{}, Bucket: "out"}
	assert.Error(t, u.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing"), "k"))

	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	u.Client = &mockS3Client{err: errors.New("denied")}
	err := u.UploadFile(context.Background(), path, "k")
	assert.ErrorContains(t, err, "denied")
}
