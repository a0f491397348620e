package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"telly/internal/api"
	"telly/internal/config"
	"telly/internal/discovery"
	"telly/internal/logger"
)

var (
	serveAddress string
	tokenSubject string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	Long: `Serve dispatch, pairing and discovery over HTTP. When api.jwt_secret (or
TELLY_JWT_SECRET) is set every /api/v1 route requires a bearer token; mint one
with "telly token".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			logger.SetSilentMode(false)
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		opts := api.Options{
			ScanDefaults: discovery.Options{
				Prefixes:       a.cfg.Scan.Prefixes,
				MaxConcurrency: a.cfg.Scan.Workers,
				ProbeTimeout:   config.Duration(a.cfg.Scan.ProbeTimeout, discovery.DefaultProbeTimeout),
				MDNS:           a.cfg.Scan.MDNS,
				SSDP:           a.cfg.Scan.SSDP,
			},
			Timeout: config.Duration(a.cfg.API.Timeout, 0),
		}
		if a.cfg.API.JWTSecret != "" {
			opts.JWT = jwtService(a.cfg)
		} else {
			log.Warn().Msg("api.jwt_secret is not set; the API is unauthenticated")
		}

		address := a.cfg.API.Address
		if serveAddress != "" {
			address = serveAddress
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		server := api.NewServer(a.router, a.scanner, a.cfg.TVs, opts)
		return server.ListenAndServe(ctx, address)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.API.JWTSecret == "" {
			return errors.New("api.jwt_secret is not set")
		}

		token, err := jwtService(cfg).GenerateToken(tokenSubject)
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddress, "address", "a", "", "listen address (default from config)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "telly-cli", "token subject")
}

func jwtService(cfg *config.Config) *api.JWTService {
	return api.NewJWTService(cfg.API.JWTSecret, cfg.API.Issuer, config.Duration(cfg.API.TokenExpiry, 720*time.Hour))
}
