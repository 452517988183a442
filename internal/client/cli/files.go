package cli

import (
	"context"
	"os"

	"github.com/dmitrijs2005/filetrade/internal/contentid"
	"github.com/dmitrijs2005/filetrade/internal/filex"
)

func (a *App) Files(ctx context.Context, _ []string) error {
	files, err := a.marketService.Files(ctx)
	if err != nil {
		return err
	}
	for _, f := range files {
		a.printf("%s\n", f)
	}
	return nil
}

// Deliver is run by the offeror once a buyer has requested a file.
func (a *App) Deliver(ctx context.Context, args []string) error {
	v, err := uintArgs(args, 2)
	if err != nil {
		return err
	}
	c, err := a.marketService.Deliver(ctx, v[0], v[1])
	if err != nil {
		return err
	}
	a.printf("Published encrypted copy as %s\n", c)
	return nil
}

func (a *App) Keygen(ctx context.Context, _ []string) error {
	pk, err := a.marketService.GenerateKeyPair(ctx)
	if err != nil {
		return err
	}
	a.printf("Public key: %s\n", pk)
	return nil
}

// Hash prints the content identifier of a local file and the hex digest
// accepted by "offer".
func (a *App) Hash(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	c, err := contentid.Of(data)
	if err != nil {
		return err
	}
	digest, err := contentid.Digest(c)
	if err != nil {
		return err
	}
	a.printf("cid:    %s\nsha256: %s\n", c, digest)
	return nil
}

// Open decrypts a delivered ciphertext with the stored key pair.
func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	sealed, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	plain, err := a.marketService.Open(ctx, sealed)
	if err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(args[1], plain, 0o600); err != nil {
		return err
	}
	a.printf("Wrote %d bytes to %s\n", len(plain), args[1])
	return nil
}
