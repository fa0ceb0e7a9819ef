package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jedrzej-grabski/lock-box/pkg/jwtx"
)

// initCodec builds the token codec from configuration. With a key file the
// codec survives restarts; without one an ephemeral key is generated and
// every outstanding token dies with the process.
func initCodec(cfg Config, logger *slog.Logger) (*jwtx.Codec, error) {
	if cfg.PrivateKeyPath != "" {
		pemBytes, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		priv, err := jwtx.ParsePrivateKeyPEM(pemBytes)
		if err != nil {
			return nil, err
		}
		codec, err := jwtx.NewCodec(priv, cfg.Issuer, cfg.ClockLeeway)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded signing key", "path", cfg.PrivateKeyPath, "alg", codec.Alg())
		return codec, nil
	}

	priv, err := jwtx.GenerateKey(cfg.Algorithm, cfg.RSABits)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	codec, err := jwtx.NewCodec(priv, cfg.Issuer, cfg.ClockLeeway)
	if err != nil {
		return nil, err
	}
	logger.Warn("using ephemeral signing key; tokens will not survive restarts", "alg", codec.Alg())
	return codec, nil
}
