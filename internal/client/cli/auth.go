package cli

import (
	"context"
	"errors"
	"os"

	"github.com/dmitrijs2005/filetrade/internal/client/client"
	"github.com/dmitrijs2005/filetrade/internal/common"
)

// getSimpleText and getPassword are swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) credentials() (string, []byte, error) {
	userName, err := getSimpleText(a.reader, "Enter account name", a.out)
	if err != nil {
		return "", nil, err
	}
	if userName == "" {
		return "", nil, errors.New("account name is required")
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return "", nil, err
	}
	return userName, password, nil
}

func (a *App) Register(ctx context.Context, _ []string) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Register(ctx, userName, string(password)); err != nil {
		return err
	}
	a.printf("Account %s registered, you can login now\n", userName)
	return nil
}

func (a *App) Login(ctx context.Context, _ []string) error {
	userName, password, err := a.credentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.authService.Login(ctx, userName, string(password)); err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.setMode(ModeOffline)
		}
		return err
	}
	a.setUser(userName)
	a.setMode(ModeOnline)
	a.printf("Signed in as %s\n", userName)
	return nil
}

func (a *App) Logout(ctx context.Context, _ []string) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.setUser("")
	a.printf("Signed out\n")
	return nil
}
