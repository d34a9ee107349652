package cmd

import (
	"net/http"

	"github.com/gencraft/gencraft/internal/asset"
	"github.com/gencraft/gencraft/internal/auth"
	"github.com/gencraft/gencraft/internal/config"
	"github.com/gencraft/gencraft/internal/log"
	"github.com/gencraft/gencraft/internal/store"
)

// tokenEnv is the environment variable carrying the GenCraft bearer token.
// The token itself is issued by the external identity provider; the CLI
// only transports it.
const tokenEnv = "GENCRAFT_TOKEN"

// runtime bundles the dependencies shared by all commands.
type runtime struct {
	cfg    *config.Config
	logger log.Logger
	tokens auth.TokenSource
	store  *store.Client
}

// setup loads configuration and wires the remote-store client.
func setup() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})

	tokens, err := auth.FromEnv(tokenEnv)
	if err != nil {
		return nil, err
	}

	storeClient, err := store.New(store.Config{
		BaseURL:    cfg.APIBaseURL,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
		Tokens:     tokens,
		Logger:     logger.With("component", "store"),
	})
	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		tokens: tokens,
		store:  storeClient,
	}, nil
}

// newResolver wires the asset-store resolver, used only by the chat command.
func (rt *runtime) newResolver() (*asset.Resolver, error) {
	return asset.NewResolver(asset.Config{
		BaseURL:    rt.cfg.AssetBaseURL,
		HTTPClient: &http.Client{Timeout: rt.cfg.UploadTimeout},
		Tokens:     rt.tokens,
		Logger:     rt.logger.With("component", "asset"),
	})
}
