package health

import (
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type DBChecker struct {
	db *gorm.DB
}

func NewDBChecker(db *gorm.DB) Checker {
	if db == nil {
		return nil
	}
	return &DBChecker{db: db}
}

func (c *DBChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "db", Healthy: true}
	sqlDB, err := c.db.DB()
	if err != nil {
		res.Healthy = false
		res.Error = err.Error()
		return res
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	if client == nil {
		return nil
	}
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis", Healthy: true}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}

// StorageChecker verifies the image bucket is reachable. A missing
// bucket is not a failure, the storage service creates it on first use.
type StorageChecker struct {
	client *minio.Client
	bucket string
}

func NewStorageChecker(client *minio.Client, bucket string) Checker {
	if client == nil {
		return nil
	}
	return &StorageChecker{client: client, bucket: bucket}
}

func (c *StorageChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "storage", Healthy: true}
	if _, err := c.client.BucketExists(ctx, c.bucket); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	return res
}
