/*
 * @Description: AWS S3存储提供者实现（使用aws-sdk-go-v2），同样适用于 R2、MinIO 等兼容服务
 * @Author: 安知鱼
 * @Date: 2025-09-28 19:00:00
 * @LastEditTime: 2026-03-09 21:14:37
 * @LastEditors: 安知鱼
 *
 * 【路径转换规则】
 *
 * 对象键 = prefix + "/" + 相对路径，prefix 来自 Storage.URL 中存储桶之后的部分，
 * 例如 "s3://builds/prod" 下的 "abc/app.ipa" 对应对象键 "prod/abc/app.ipa"。
 * S3 没有真正的目录，目录由 "xxx/" 形式的标记对象或公共前缀表示。
 */
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"github.com/anzhiyu-c/anheyu-appdist/pkg/constant"
)

// deleteBatchSize DeleteObjects 单次最多 1000 个对象
const deleteBatchSize = 1000

// S3Options 创建 S3 客户端所需的配置
type S3Options struct {
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	EndpointURL     string
	Region          string
}

// s3API 是 AWSS3Provider 用到的客户端方法子集，便于测试替换
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// AWSS3Provider 实现了 IStorageProvider 接口，用于处理与AWS S3的所有交互。
type AWSS3Provider struct {
	client s3API
	bucket string
	prefix string
	log    *logrus.Entry
}

// NewAWSS3Provider 是 AWSS3Provider 的构造函数。
func NewAWSS3Provider(ctx context.Context, opts S3Options) (IStorageProvider, error) {
	client, err := newS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}
	return newAWSS3ProviderWithClient(client, opts.Bucket, opts.Prefix), nil
}

func newAWSS3ProviderWithClient(client s3API, bucket, prefix string) *AWSS3Provider {
	return &AWSS3Provider{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		log:    logrus.WithFields(logrus.Fields{"module": "storage", "backend": "s3", "bucket": bucket}),
	}
}

// newS3Client 获取AWS S3客户端（使用aws-sdk-go-v2）
func newS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("AWS S3配置缺少存储桶名称")
	}

	region := opts.Region
	if region == "" {
		region = "us-east-1" // 默认区域
	}

	var loadOpts []func(*config.LoadOptions) error
	loadOpts = append(loadOpts, config.WithRegion(region))
	// 未配置密钥时使用默认凭证链（环境变量、共享配置、实例角色）
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("创建AWS S3配置失败: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
			o.UsePathStyle = true // 对于自定义endpoint通常需要path-style
		}
	})

	logrus.WithFields(logrus.Fields{"module": "storage", "backend": "s3"}).
		Infof("成功创建S3客户端 - 存储桶: %s, 区域: %s, endpoint: %q", opts.Bucket, region, opts.EndpointURL)
	return client, nil
}

func (p *AWSS3Provider) Type() constant.StorageBackendType {
	return constant.StorageBackendS3
}

// objectKey 构建S3对象键，不以斜杠开头
func (p *AWSS3Provider) objectKey(name string) (string, error) {
	cleaned, err := CleanPath(name)
	if err != nil {
		return "", err
	}
	switch {
	case p.prefix == "":
		return cleaned, nil
	case cleaned == "":
		return p.prefix, nil
	}
	return p.prefix + "/" + cleaned, nil
}

// dirPrefix 目录对应的对象键前缀，以斜杠结尾；根目录且无 prefix 时为空
func (p *AWSS3Provider) dirPrefix(name string) (string, error) {
	key, err := p.objectKey(name)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", nil
	}
	return key + "/", nil
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// MakeDirs 创建一个以"/"结尾的空对象作为目录标记
func (p *AWSS3Provider) MakeDirs(ctx context.Context, dir string) error {
	prefix, err := p.dirPrefix(dir)
	if err != nil {
		return err
	}
	if prefix == "" {
		return nil
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(prefix),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return fmt.Errorf("在AWS S3创建目录 %s 失败: %w", prefix, err)
	}
	return nil
}

// Put 上传文件到AWS S3。S3 的 PutObject 本身是原子的。
func (p *AWSS3Provider) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	key, err := p.objectKey(name)
	if err != nil {
		return err
	}

	// 将文件内容读入内存，以便获取准确的 ContentLength
	// 第三方 S3 兼容服务（如 Ceph RGW、MinIO）对 Content-SHA256 验证更严格
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("读取文件内容失败: %w", err)
	}
	if size >= 0 && int64(len(content)) != size {
		return fmt.Errorf("写入长度不一致: 期望 %d, 实际 %d", size, len(content))
	}

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	hash := sha256.Sum256(content)

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:         aws.String(p.bucket),
		Key:            aws.String(key),
		Body:           bytes.NewReader(content),
		ContentLength:  aws.Int64(int64(len(content))),
		ContentType:    aws.String(contentType),
		ChecksumSHA256: aws.String(base64.StdEncoding.EncodeToString(hash[:])),
	})
	if err != nil {
		return fmt.Errorf("上传文件到AWS S3失败: %w", err)
	}
	p.log.WithField("key", key).Debugf("上传成功, %d bytes", len(content))
	return nil
}

// Get 从AWS S3获取文件流
func (p *AWSS3Provider) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	key, err := p.objectKey(name)
	if err != nil {
		return nil, err
	}
	output, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, notFound(name, err)
		}
		return nil, fmt.Errorf("从AWS S3获取文件失败: %w", err)
	}
	return output.Body, nil
}

// Stat 先按对象查找，找不到时按目录前缀查找
func (p *AWSS3Provider) Stat(ctx context.Context, name string) (*FileInfo, error) {
	key, err := p.objectKey(name)
	if err != nil {
		return nil, err
	}
	base := path.Base("/" + key)

	if key != "" {
		head, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			info := &FileInfo{Name: base, Size: aws.ToInt64(head.ContentLength)}
			if head.LastModified != nil {
				info.ModTime = *head.LastModified
			}
			return info, nil
		}
		if !isS3NotFound(err) {
			return nil, fmt.Errorf("获取AWS S3对象信息失败: %w", err)
		}
	}

	prefix, _ := p.dirPrefix(name)
	output, err := p.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(p.bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("列出AWS S3对象失败: %w", err)
	}
	if len(output.Contents) == 0 && prefix != "" {
		return nil, notFound(name, errors.New("no such key or prefix"))
	}
	return &FileInfo{Name: base, IsDir: true}, nil
}

func (p *AWSS3Provider) Exists(ctx context.Context, name string) (bool, error) {
	_, err := p.Stat(ctx, name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, constant.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// List 列出目录下的直接子文件与子目录
func (p *AWSS3Provider) List(ctx context.Context, dir string) ([]FileInfo, error) {
	prefix, err := p.dirPrefix(dir)
	if err != nil {
		return nil, err
	}

	fileInfos := make([]FileInfo, 0)
	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(p.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("列出AWS S3对象失败: %w", err)
		}

		// 处理文件对象
		for _, obj := range output.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			// 跳过目录标记本身以及更深层级的对象
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			info := FileInfo{Name: name, Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				info.ModTime = *obj.LastModified
			}
			fileInfos = append(fileInfos, info)
		}

		// 处理公共前缀（目录）
		for _, commonPrefix := range output.CommonPrefixes {
			dirName := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(commonPrefix.Prefix), prefix), "/")
			if dirName == "" {
				continue
			}
			fileInfos = append(fileInfos, FileInfo{Name: dirName, IsDir: true})
		}
	}
	return fileInfos, nil
}

// RemoveTree 删除对象本身以及该前缀下的全部对象
func (p *AWSS3Provider) RemoveTree(ctx context.Context, name string) error {
	key, err := p.objectKey(name)
	if err != nil {
		return err
	}
	if key == "" || key == p.prefix {
		return fmt.Errorf("%w: 不允许删除存储根目录", constant.ErrBadRequest)
	}

	var keys []string
	if _, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}); err == nil {
		keys = append(keys, key)
	} else if !isS3NotFound(err) {
		return fmt.Errorf("获取AWS S3对象信息失败: %w", err)
	}

	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(key + "/"),
	})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("列出AWS S3对象失败: %w", err)
		}
		for _, obj := range output.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	if len(keys) == 0 {
		return notFound(name, errors.New("no such key or prefix"))
	}

	for start := 0; start < len(keys); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(keys))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(k)})
		}
		output, err := p.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(p.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("批量删除AWS S3对象失败: %w", err)
		}
		if len(output.Errors) > 0 {
			first := output.Errors[0]
			return fmt.Errorf("删除AWS S3对象 %s 失败: %s", aws.ToString(first.Key), aws.ToString(first.Message))
		}
	}
	p.log.WithField("key", key).Debugf("递归删除 %d 个对象", len(keys))
	return nil
}
