package core

import (
	"context"
	"fmt"

	"hostfs/config"
	"hostfs/protocols"
)

// NewHost builds and initializes the host named by cfg.Type.
func NewHost(ctx context.Context, cfg config.Host) (protocols.FileSystem, error) {
	fs, err := createFileSystem(cfg)
	if err != nil {
		return nil, err
	}
	if err := fs.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to init %s host: %w", cfg.Type, err)
	}
	return fs, nil
}

func createFileSystem(cfg config.Host) (protocols.FileSystem, error) {
	switch cfg.Type {
	case "local", "":
		return &protocols.LocalFileSystem{RootPath: cfg.RootPath}, nil
	case "memory":
		return protocols.NewMemoryFileSystem(), nil
	case "sftp":
		if cfg.Auth == nil {
			return nil, fmt.Errorf("auth required for sftp")
		}
		return &protocols.SFTPFileSystem{
			Host:     cfg.Auth.Host,
			Port:     cfg.Auth.Port,
			User:     cfg.Auth.User,
			Password: cfg.Auth.Password,
			RootPath: cfg.RootPath,
		}, nil
	case "ftp":
		if cfg.Auth == nil {
			return nil, fmt.Errorf("auth required for ftp")
		}
		return &protocols.FTPFileSystem{
			Host:     cfg.Auth.Host,
			Port:     cfg.Auth.Port,
			User:     cfg.Auth.User,
			Password: cfg.Auth.Password,
			RootPath: cfg.RootPath,
		}, nil
	case "minio":
		if cfg.MinIO == nil {
			return nil, fmt.Errorf("minio settings required for minio")
		}
		return &protocols.MinIOFileSystem{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Secure:    cfg.MinIO.Secure,
			Bucket:    cfg.MinIO.Bucket,
			RootPath:  cfg.RootPath,
		}, nil
	default:
		return nil, fmt.Errorf("unknown fs type: %s", cfg.Type)
	}
}
