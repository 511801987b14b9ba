// prodctl is a small operator CLI over the production order API. It signs
// in once and relies on the client's refresh-once policy for long
// sessions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"prodline_backend/internal/apiclient"
	ordertransport "prodline_backend/internal/orders/transport"
)

const usage = `usage: prodctl <command> [flags]

commands:
  list       list orders (flags: -stage, -status, -client)
  get        show one order (flags: -id)
  history    show an order's transition ledger (flags: -id)
  create     create an order (flags: -code, -description, -quantity, -client, -size, -delivery)
  advance    move an order to the next workstation (flags: -id)
  status     set an order's status (flags: -id, -status, -note)
  bulk       set one status on many orders (flags: -ids, -status, -note)

environment:
  PRODLINE_API_URL   API base URL (default http://localhost:8080)
  PRODLINE_EMAIL     sign-in email
  PRODLINE_PASSWORD  sign-in password
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := signIn(ctx)

	var err error
	switch os.Args[1] {
	case "list":
		err = runList(ctx, client, os.Args[2:])
	case "get":
		err = runGet(ctx, client, os.Args[2:])
	case "history":
		err = runHistory(ctx, client, os.Args[2:])
	case "create":
		err = runCreate(ctx, client, os.Args[2:])
	case "advance":
		err = runAdvance(ctx, client, os.Args[2:])
	case "status":
		err = runStatus(ctx, client, os.Args[2:])
	case "bulk":
		err = runBulk(ctx, client, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "prodctl:", err)
		os.Exit(1)
	}
}

func signIn(ctx context.Context) *apiclient.Client {
	baseURL := os.Getenv("PRODLINE_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	email := os.Getenv("PRODLINE_EMAIL")
	pass := os.Getenv("PRODLINE_PASSWORD")
	if email == "" || pass == "" {
		fmt.Fprintln(os.Stderr, "prodctl: PRODLINE_EMAIL and PRODLINE_PASSWORD must be set")
		os.Exit(2)
	}

	client := apiclient.New(baseURL)
	if err := client.SignIn(ctx, email, pass); err != nil {
		fmt.Fprintln(os.Stderr, "prodctl: sign in failed:", err)
		os.Exit(1)
	}
	return client
}

func runList(ctx context.Context, client *apiclient.Client, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	stage := fs.String("stage", "", "filter by stage")
	status := fs.String("status", "", "filter by status")
	clientName := fs.String("client", "", "filter by client name")
	_ = fs.Parse(args)

	var params []string
	if *stage != "" {
		params = append(params, "stage="+*stage)
	}
	if *status != "" {
		params = append(params, "status="+*status)
	}
	if *clientName != "" {
		params = append(params, "client="+*clientName)
	}

	result, err := client.ListOrders(ctx, strings.Join(params, "&"))
	if err != nil {
		return err
	}

	for _, o := range result.Items {
		fmt.Printf("%-6d %-12s %-10s %-14s qty=%-5d %s\n",
			o.ID, o.Code, o.CurrentStage, o.CurrentStatus, o.Quantity, o.ClientName)
	}
	fmt.Printf("%d orders\n", result.Total)
	return nil
}

func runGet(ctx context.Context, client *apiclient.Client, args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	id := fs.Int64("id", 0, "order id")
	_ = fs.Parse(args)

	order, err := client.GetOrder(ctx, *id)
	if err != nil {
		return err
	}
	return printJSON(order)
}

func runHistory(ctx context.Context, client *apiclient.Client, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	id := fs.Int64("id", 0, "order id")
	_ = fs.Parse(args)

	history, err := client.GetHistory(ctx, *id)
	if err != nil {
		return err
	}

	for _, e := range history.Entries {
		stage := e.NewStage
		if e.PreviousStage != nil && *e.PreviousStage != e.NewStage {
			stage = *e.PreviousStage + " > " + e.NewStage
		}
		status := e.NewStatus
		if e.PreviousStatus != nil && *e.PreviousStatus != e.NewStatus {
			status = *e.PreviousStatus + " > " + e.NewStatus
		}
		fmt.Printf("%s  stage: %-22s status: %-28s %s\n",
			e.CreatedAt.Format("2006-01-02 15:04"), stage, status, e.Note)
	}
	return nil
}

func runCreate(ctx context.Context, client *apiclient.Client, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	code := fs.String("code", "", "unique order code")
	description := fs.String("description", "", "order description")
	quantity := fs.Int("quantity", 0, "quantity")
	clientName := fs.String("client", "", "client name")
	size := fs.String("size", "", "size")
	delivery := fs.String("delivery", "", "estimated delivery (YYYY-MM-DD)")
	_ = fs.Parse(args)

	deliveryDate, err := time.Parse("2006-01-02", *delivery)
	if err != nil {
		return fmt.Errorf("invalid -delivery date: %w", err)
	}

	order, err := client.CreateOrder(ctx, ordertransport.CreateOrderRequest{
		Code:              *code,
		Description:       *description,
		Quantity:          *quantity,
		ClientName:        *clientName,
		Size:              *size,
		EstimatedDelivery: deliveryDate,
	})
	if err != nil {
		return err
	}
	return printJSON(order)
}

func runAdvance(ctx context.Context, client *apiclient.Client, args []string) error {
	fs := flag.NewFlagSet("advance", flag.ExitOnError)
	id := fs.Int64("id", 0, "order id")
	_ = fs.Parse(args)

	order, err := client.AdvanceStage(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Printf("%s is now at %s\n", order.Code, order.CurrentStage)
	return nil
}

func runStatus(ctx context.Context, client *apiclient.Client, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	id := fs.Int64("id", 0, "order id")
	status := fs.String("status", "", "target status")
	note := fs.String("note", "", "audit note")
	_ = fs.Parse(args)

	order, err := client.UpdateStatus(ctx, *id, *status, *note)
	if err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", order.Code, order.CurrentStatus)
	return nil
}

func runBulk(ctx context.Context, client *apiclient.Client, args []string) error {
	fs := flag.NewFlagSet("bulk", flag.ExitOnError)
	ids := fs.String("ids", "", "comma-separated order ids")
	status := fs.String("status", "", "target status")
	note := fs.String("note", "", "audit note")
	_ = fs.Parse(args)

	var orderIDs []int64
	for _, raw := range strings.Split(*ids, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid order id %q", raw)
		}
		orderIDs = append(orderIDs, id)
	}

	result, err := client.BulkUpdateStatus(ctx, ordertransport.BulkUpdateStatusRequest{
		OrderIDs: orderIDs,
		Status:   *status,
		Note:     *note,
	})
	if err != nil {
		return err
	}

	fmt.Printf("succeeded: %v\n", result.Succeeded)
	for _, f := range result.Failed {
		fmt.Printf("failed: %d (%s)\n", f.OrderID, f.Reason)
	}
	return nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
