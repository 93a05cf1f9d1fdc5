package main

import (
	"fmt"
	"time"

	"github.com/Silozo17/homeholdem-sub001/internal/config"
	"github.com/Silozo17/homeholdem-sub001/internal/server"
)

// TokenCmd signs a bearer token with the server's secret
type TokenCmd struct {
	Subject string        `arg:"" help:"Participant ID"`
	TTL     time.Duration `default:"24h" help:"Token lifetime"`
	Secret  string        `env:"HOLDEM_JWT_SECRET" help:"Signing secret; defaults to the configured one"`
	Config  string        `short:"c" default:"holdem.hcl" help:"HCL configuration file"`
}

func (c *TokenCmd) Run() error {
	secret := c.Secret
	if secret == "" {
		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}
		cfg, err := config.Load(c.Config)
		if err != nil {
			return err
		}
		secret = cfg.Auth.JWTSecret
	}
	tok, err := server.MintToken(server.NewAuth(secret), c.Subject, c.TTL)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
