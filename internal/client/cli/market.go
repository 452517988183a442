package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/filetrade/internal/client/services"
	"github.com/dmitrijs2005/filetrade/internal/marketpb"
)

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a non-negative integer", s)
	}
	return v, nil
}

// uintArgs parses the first n args as integers; the rest are left to the caller.
func uintArgs(args []string, n int) ([]uint64, error) {
	if len(args) < n {
		return nil, errUsage
	}
	out := make([]uint64, n)
	for i := 0; i < n; i++ {
		v, err := parseUint(args[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (a *App) Info(ctx context.Context, _ []string) error {
	info, err := a.marketService.Info(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "owner\t%s\n", info.Owner)
	fmt.Fprintf(tw, "fee\t%d\n", info.Fee)
	fmt.Fprintf(tw, "custody\t%d\n", info.Custody)
	fmt.Fprintf(tw, "fees collected\t%d\n", info.Fees)
	fmt.Fprintf(tw, "funded\t%d\n", info.Funded)
	fmt.Fprintf(tw, "offerings\t%d (%d active)\n", info.Offerings, info.ActiveOfferings)
	fmt.Fprintf(tw, "seq\t%d\n", info.Seq)
	return tw.Flush()
}

func (a *App) Balance(ctx context.Context, args []string) error {
	account := ""
	if len(args) > 0 {
		account = args[0]
	}
	b, err := a.marketService.Balance(ctx, account)
	if err != nil {
		return err
	}
	a.printf("%s: %d\n", b.Account, b.Balance)
	return nil
}

func (a *App) Fund(ctx context.Context, args []string) error {
	v, err := uintArgs(args, 1)
	if err != nil {
		return err
	}
	account := ""
	if len(args) > 1 {
		account = args[1]
	}
	resp, err := a.marketService.Fund(ctx, account, v[0])
	if err != nil {
		return err
	}
	a.printf("%s: %d\n", resp.Account, resp.Balance)
	return nil
}

func (a *App) Offer(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errUsage
	}
	amounts, err := uintArgs(args[1:], 2)
	if err != nil {
		return err
	}
	p := services.OfferParams{FileName: args[0], Price: amounts[0], DepositRequirement: amounts[1]}
	if len(args) > 3 {
		p.Hash = args[3]
	}
	if len(args) > 4 {
		if p.Paid, err = parseUint(args[4]); err != nil {
			return err
		}
	}
	id, err := a.marketService.Offer(ctx, p)
	if err != nil {
		return err
	}
	a.printf("Offering %d created\n", id)
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	v, err := uintArgs(args, 1)
	if err != nil {
		return err
	}
	if err := a.marketService.Remove(ctx, v[0]); err != nil {
		return err
	}
	a.printf("Offering %d removed, deposits refunded\n", v[0])
	return nil
}

func (a *App) Request(ctx context.Context, args []string) error {
	v, err := uintArgs(args, 1)
	if err != nil {
		return err
	}
	var paid uint64
	if len(args) > 1 {
		if paid, err = parseUint(args[1]); err != nil {
			return err
		}
	}
	id, err := a.marketService.Request(ctx, v[0], paid)
	if err != nil {
		return err
	}
	a.printf("Request %d placed on offering %d\n", id, v[0])
	return nil
}

func (a *App) Offering(ctx context.Context, args []string) error {
	v, err := uintArgs(args, 1)
	if err != nil {
		return err
	}
	o, err := a.marketService.Offering(ctx, v[0])
	if err != nil {
		return err
	}
	return a.printOfferings(o)
}

func (a *App) Offerings(ctx context.Context, _ []string) error {
	list, err := a.marketService.ActiveOfferings(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.printf("No active offerings\n")
		return nil
	}
	return a.printOfferings(list...)
}

func (a *App) printOfferings(list ...*marketpb.Offering) error {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILE\tOFFEROR\tPRICE\tDEPOSIT\tVERSION\tHASH\tACTIVE")
	for _, o := range list {
		hash := o.FileHash
		if hash == "" {
			hash = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\t%t\n",
			o.ID, o.FileName, o.Offeror, o.Price, o.DepositRequirement, o.Version, hash, o.Active)
	}
	return tw.Flush()
}

func (a *App) Requests(ctx context.Context, args []string) error {
	v, err := uintArgs(args, 1)
	if err != nil {
		return err
	}
	list, err := a.marketService.Requests(ctx, v[0])
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.printf("No requests\n")
		return nil
	}
	return a.printRequests(list...)
}

func (a *App) RequestInfo(ctx context.Context, args []string) error {
	v, err := uintArgs(args, 2)
	if err != nil {
		return err
	}
	r, err := a.marketService.RequestInfo(ctx, v[0], v[1])
	if err != nil {
		return err
	}
	return a.printRequests(r)
}

func (a *App) printRequests(list ...*marketpb.FileRequest) error {
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOFFERING\tBUYER\tDEPOSIT\tREFUNDED\tPUBLIC KEY")
	for _, r := range list {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%t\t%s\n", r.ID, r.OfferingID, r.Buyer, r.DepositHeld, r.Refunded, r.PublicKey)
	}
	return tw.Flush()
}
