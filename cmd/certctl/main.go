package main

import (
	"context"

	"certregistry/cmd/certctl/internal/commands"

	"github.com/alecthomas/kong"
	"github.com/hyperledger/fabric/common/flogging"
)

var (
	version = "dev"
	cli     struct {
		Issue    commands.IssueCmd  `cmd:"" help:"Issue a certificate"`
		Verify   commands.VerifyCmd `cmd:"" help:"Verify a certificate"`
		Revoke   commands.RevokeCmd `cmd:"" help:"Revoke a certificate"`
		Total    commands.TotalCmd  `cmd:"" help:"Count issued certificates"`
		As       string             `help:"Identity the local harness treats as authenticated" env:"CERTCTL_AS"`
		RedisURL string             `help:"Redis URL; in-memory when empty" env:"CERTCTL_REDIS_URL"`
		Prefix   string             `help:"Redis key prefix" default:"certregistry"`
		LogSpec  string             `help:"Log level spec" default:"warning" env:"CORE_CHAINCODE_LOGGING_LEVEL"`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Description("Local harness for the certificate registry."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	flogging.ActivateSpec(cli.LogSpec)
	err := cmd.Run(&commands.Globals{
		As:       cli.As,
		RedisURL: cli.RedisURL,
		Prefix:   cli.Prefix,
		Version:  version,
	})
	cmd.FatalIfErrorf(err)
}
