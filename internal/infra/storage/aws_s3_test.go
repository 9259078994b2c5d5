package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

// fakeS3 是一个内存中的 S3，只实现 AWSS3Provider 用到的方法
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := aws.ToString(in.Prefix)
	delimiter := aws.ToString(in.Delimiter)

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	seen := map[string]bool{}
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if delimiter != "" {
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				cp := prefix + rest[:idx+len(delimiter)]
				if !seen[cp] {
					seen[cp] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(cp)})
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), Size: aws.Int64(int64(len(f.objects[k])))})
		if in.MaxKeys != nil && int32(len(out.Contents)) >= *in.MaxKeys {
			break
		}
	}
	return out, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, obj := range in.Delete.Objects {
		delete(f.objects, aws.ToString(obj.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func TestAWSS3Provider_ObjectKey(t *testing.T) {
	p := newAWSS3ProviderWithClient(newFakeS3(), "bucket", "/prod/")
	key, err := p.objectKey("abc/app.ipa")
	require.NoError(t, err)
	assert.Equal(t, "prod/abc/app.ipa", key)

	key, err = p.objectKey("")
	require.NoError(t, err)
	assert.Equal(t, "prod", key)

	_, err = p.objectKey("../x")
	assert.ErrorIs(t, err, constant.ErrBadRequest)
}

func TestAWSS3Provider_DirectorySemantics(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	p := newAWSS3ProviderWithClient(fake, "bucket", "prod")

	require.NoError(t, p.MakeDirs(ctx, "u1"))
	require.NoError(t, p.Put(ctx, "u1/app.apk", strings.NewReader("apk"), 3))
	require.NoError(t, p.Put(ctx, "u1/build_info.json", strings.NewReader("{}"), 2))
	require.NoError(t, p.Put(ctx, "_indexes/latest_upload_by_bundle_id/com.x.txt", strings.NewReader("u1"), 2))

	items, err := p.List(ctx, "")
	require.NoError(t, err)
	dirs := map[string]bool{}
	for _, it := range items {
		dirs[it.Name] = it.IsDir
	}
	assert.Equal(t, map[string]bool{"u1": true, "_indexes": true}, dirs)

	items, err = p.List(ctx, "u1")
	require.NoError(t, err)
	names := []string{}
	for _, it := range items {
		names = append(names, it.Name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"app.apk", "build_info.json"}, names)

	info, err := p.Stat(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, info.IsDir)

	info, err = p.Stat(ctx, "u1/app.apk")
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size)

	rc, err := p.Get(ctx, "u1/app.apk")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "apk", string(data))

	_, err = p.Get(ctx, "u2/app.apk")
	assert.ErrorIs(t, err, constant.ErrNotFound)

	require.NoError(t, p.RemoveTree(ctx, "u1"))
	ok, err := p.Exists(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, p.RemoveTree(ctx, "u1"), constant.ErrNotFound)

	// 索引不受影响
	ok, err = p.Exists(ctx, "_indexes/latest_upload_by_bundle_id/com.x.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}
