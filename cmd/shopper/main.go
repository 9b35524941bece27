// Command shopper is a terminal storefront: it keeps a cart and a wishlist in
// a local bolt file (or a redis session) and checks out against the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/jewelcraft/storefront/pkg/storefront"
)

const usage = `usage: shopper [flags] <command> [args]

commands:
  add <product-id> [qty]       add a product to the cart
  remove <product-id>          remove a product from the cart
  qty <product-id> <qty>       set the cart quantity (0 removes)
  cart                         show the cart
  clear                        empty the cart
  wish <product-id>            add a product to the wishlist
  unwish <product-id>          remove a product from the wishlist
  wishlist                     show the wishlist
  checkout                     validate the cart and place the order
  buy <product-id> [qty]       buy one product without touching the cart
`

var (
	apiURL   = flag.String("api", "http://127.0.0.1:8000", "storefront api base url")
	dbFile   = flag.String("db", "shopper.db", "local cart and wishlist file")
	redisURL = flag.String("redis", "", "redis url; keeps the session in redis instead of the local file")
	session  = flag.String("session", "default", "session id used with -redis")
	currency = flag.String("currency", "USD", "order currency")
	name     = flag.String("name", "", "customer name for checkout")
	email    = flag.String("email", "", "customer email for checkout")
	phone    = flag.String("phone", "", "customer phone for checkout")
	verbose  = flag.Bool("verbose", false, "log debug output")
)

type shopper struct {
	client   *storefront.Client
	cart     *storefront.CartStore
	wishlist *storefront.WishlistStore
	checkout *storefront.Checkout
	out      *tabwriter.Writer
}

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := newLogger(*verbose)
	zap.ReplaceGlobals(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func openStorage() (storefront.Storage, func(), error) {
	if *redisURL != "" {
		opts, err := redis.ParseURL(*redisURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "parse redis url")
		}
		client := redis.NewClient(opts)
		return storefront.NewRedisStorage(client, *session, 30*24*time.Hour), func() { _ = client.Close() }, nil
	}
	store, err := storefront.OpenBoltStorage(*dbFile)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func run(ctx context.Context, args []string) error {
	storage, closeStorage, err := openStorage()
	if err != nil {
		return err
	}
	defer closeStorage()

	client := storefront.NewClient(*apiURL)
	cart, err := storefront.NewCartStore(ctx, storage, client)
	if err != nil {
		return err
	}
	wishlist, err := storefront.NewWishlistStore(ctx, storage)
	if err != nil {
		return err
	}
	s := &shopper{
		client:   client,
		cart:     cart,
		wishlist: wishlist,
		checkout: storefront.NewCheckout(cart, storefront.NewValidator(client), client, *currency),
		out:      tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0),
	}
	defer s.out.Flush()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		if len(rest) < 1 {
			return errors.New("add needs a product id")
		}
		return s.add(ctx, rest[0], qtyArg(rest, 1))
	case "remove":
		if len(rest) < 1 {
			return errors.New("remove needs a product id")
		}
		return s.cart.Remove(ctx, rest[0])
	case "qty":
		if len(rest) < 2 {
			return errors.New("qty needs a product id and a quantity")
		}
		return s.cart.UpdateQuantity(ctx, rest[0], cast.ToInt(rest[1]))
	case "cart":
		s.printCart()
		return nil
	case "clear":
		return s.cart.Clear(ctx)
	case "wish":
		if len(rest) < 1 {
			return errors.New("wish needs a product id")
		}
		p, err := s.client.GetProduct(ctx, rest[0])
		if err != nil {
			return err
		}
		return s.wishlist.Add(ctx, *p)
	case "unwish":
		if len(rest) < 1 {
			return errors.New("unwish needs a product id")
		}
		return s.wishlist.Remove(ctx, rest[0])
	case "wishlist":
		s.printWishlist()
		return nil
	case "checkout":
		session, err := s.checkout.Begin(ctx)
		if err != nil {
			return err
		}
		return s.submit(ctx, session)
	case "buy":
		if len(rest) < 1 {
			return errors.New("buy needs a product id")
		}
		p, err := s.client.GetProduct(ctx, rest[0])
		if err != nil {
			return err
		}
		session, err := s.checkout.BeginSingle(ctx, *p, qtyArg(rest, 1))
		if err != nil {
			return err
		}
		return s.submit(ctx, session)
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func qtyArg(args []string, i int) int {
	if len(args) <= i {
		return 1
	}
	return cast.ToInt(args[i])
}

func (s *shopper) add(ctx context.Context, id string, qty int) error {
	p, err := s.client.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.cart.Add(ctx, *p, qty); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "added %s, cart has %d items\n", p.Name, s.cart.TotalItems())
	return nil
}

func (s *shopper) printCart() {
	fmt.Fprintln(s.out, "ID\tNAME\tQTY\tPRICE")
	for _, item := range s.cart.Items() {
		fmt.Fprintf(s.out, "%s\t%s\t%d\t%.2f\n", item.ID, item.Name, item.CartQuantity, item.Price)
	}
	fmt.Fprintf(s.out, "\t\t%d\t%s\n", s.cart.TotalItems(), s.cart.TotalPrice().StringFixed(2))
}

func (s *shopper) printWishlist() {
	fmt.Fprintln(s.out, "ID\tNAME\tPRICE")
	for _, p := range s.wishlist.Items() {
		fmt.Fprintf(s.out, "%s\t%s\t%.2f\n", p.ID, p.Name, p.Price)
	}
}

func (s *shopper) submit(ctx context.Context, session *storefront.CheckoutSession) error {
	if issues := session.Issues(); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintln(s.out, issue.Message())
		}
		return storefront.ErrCheckoutBlocked
	}
	if !session.CanProceed() {
		return errors.New("nothing to check out")
	}

	fmt.Fprintln(s.out, "ITEM\tQTY\tUNIT\tTOTAL")
	for _, line := range session.Lines() {
		fmt.Fprintf(s.out, "%s\t%d\t%s\t%s\n", line.Name, line.Quantity,
			line.UnitPrice.StringFixed(2), line.LineTotal.StringFixed(2))
	}
	fmt.Fprintf(s.out, "\t\t\t%s %s\n", session.Total().StringFixed(2), strings.ToUpper(*currency))

	receipt, err := s.checkout.Submit(ctx, storefront.Customer{Name: *name, Email: *email, Phone: *phone}, session)
	if err != nil {
		var oe *storefront.OrderError
		if errors.As(err, &oe) {
			return errors.New(oe.Message)
		}
		return err
	}
	fmt.Fprintf(s.out, "order %s placed, reference %s, status %s\n", receipt.OrderID, receipt.Reference, receipt.Status)
	if receipt.NeedsPayment() {
		fmt.Fprintf(s.out, "complete payment at %s\n", receipt.PaymentURL)
	}
	return nil
}
