package keystore

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github/chapool/go-keyring/internal/config"
	"github/chapool/go-keyring/internal/util"
)

const fileMode = 0o600

type service struct {
	path   string
	params *ScryptParams
}

// NewService creates a new KeystoreService backed by the file at cfg.Path
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(cfg config.Keystore) (Service, error) {
	if cfg.Path == "" {
		return nil, errors.New("keystore path is required")
	}

	params := DefaultScryptParams()
	if cfg.ScryptN > 0 {
		params.N = cfg.ScryptN
	}
	if cfg.ScryptP > 0 {
		params.P = cfg.ScryptP
	}

	return &service{
		path:   cfg.Path,
		params: params,
	}, nil
}

func (s *service) CreateKeystore(ctx context.Context, mnemonic string, password string, verificationAddress string) (*Keystore, error) {
	log := util.LogFromContext(ctx)

	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check keystore existence")
	}
	if exists {
		return nil, ErrKeystoreExists
	}

	keystoreJSON, err := encryptSecret([]byte(mnemonic), password, s.params)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encrypt mnemonic")
		return nil, errors.Wrap(err, "failed to encrypt mnemonic")
	}
	keystoreJSON.Address = verificationAddress

	data, err := json.MarshalIndent(keystoreJSON, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal keystore JSON")
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("Failed to write keystore")
		return nil, err
	}

	return &Keystore{Path: s.path, Data: *keystoreJSON}, nil
}

func (s *service) DecryptMnemonic(ctx context.Context, keystore *Keystore, password string) (string, error) {
	mnemonic, err := decryptSecret(&keystore.Data, password)
	if err != nil {
		util.LogFromContext(ctx).Error().Err(err).Msg("Failed to decrypt mnemonic")
		return "", errors.Wrap(err, "failed to decrypt mnemonic")
	}
	return string(mnemonic), nil
}

func (s *service) GetKeystore(_ context.Context) (*Keystore, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrKeystoreNotFound
		}
		return nil, errors.Wrap(err, "failed to read keystore")
	}

	var keystoreJSON KeystoreJSON
	if err := json.Unmarshal(data, &keystoreJSON); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal keystore JSON")
	}

	return &Keystore{Path: s.path, Data: keystoreJSON}, nil
}

func (s *service) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, errors.Wrap(err, "failed to stat keystore")
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp keystore")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write keystore")
	}
	if err := tmp.Chmod(fileMode); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to chmod keystore")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close keystore")
	}

	return errors.Wrap(os.Rename(tmp.Name(), path), "failed to move keystore into place")
}
