package commands

import (
	"context"
	"fmt"

	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("certregistry.certctl")

type IssueCmd struct {
	Issuer      string `help:"Issuer identity; defaults to --as" default:""`
	Student     string `help:"Student name" required:""`
	Course      string `help:"Course name" required:""`
	Institution string `help:"Institution name" required:""`
}

func (c *IssueCmd) Run(ctx context.Context, globals *Globals) error {
	reg, closeStore, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	issuer := c.Issuer
	if issuer == "" {
		issuer = globals.As
	}
	id, err := reg.Issue(ctx, issuer, c.Student, c.Course, c.Institution)
	if err != nil {
		return fmt.Errorf("issue certificate: %w", err)
	}
	return globals.print(map[string]uint64{"certId": id})
}

type VerifyCmd struct {
	ID uint64 `arg:"" help:"Certificate ID"`
}

func (c *VerifyCmd) Run(ctx context.Context, globals *Globals) error {
	reg, closeStore, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	cert, err := reg.Verify(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("verify certificate: %w", err)
	}
	return globals.print(cert)
}

type RevokeCmd struct {
	ID     uint64 `arg:"" help:"Certificate ID"`
	Issuer string `help:"Issuer identity; defaults to --as" default:""`
}

func (c *RevokeCmd) Run(ctx context.Context, globals *Globals) error {
	reg, closeStore, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	issuer := c.Issuer
	if issuer == "" {
		issuer = globals.As
	}
	if err := reg.Revoke(ctx, issuer, c.ID); err != nil {
		return fmt.Errorf("revoke certificate: %w", err)
	}
	return globals.print(map[string]interface{}{"certId": c.ID, "revoked": true})
}

type TotalCmd struct{}

func (c *TotalCmd) Run(ctx context.Context, globals *Globals) error {
	reg, closeStore, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	total, err := reg.TotalCertificates(ctx)
	if err != nil {
		return fmt.Errorf("count certificates: %w", err)
	}
	return globals.print(map[string]uint64{"total": total})
}
