// places-auth drives the Places authentication flows from the command
// line.
//
// Usage:
//
//	places-auth login     - Run the three-legged OAuth handshake
//	places-auth logout    - Remove the stored user credential
//	places-auth status    - Show store backend and authorization state
//	places-auth bearer    - Print the app-only bearer token
//	places-auth get       - Perform an authenticated GET against the API
//	places-auth geocode   - Reverse geocode a coordinate
//	places-auth search    - Search places by name
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/heliotropix/places-auth/internal/config"
	"github.com/heliotropix/places-auth/internal/logging"
	"github.com/heliotropix/places-auth/internal/oauth"
	"github.com/heliotropix/places-auth/internal/routing"
	"github.com/heliotropix/places-auth/internal/state"
	"github.com/heliotropix/places-auth/internal/twitter"
)

var Version = "dev"

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "places-auth",
		Short:         "Authenticate the Places app with Twitter",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newLoginCmd())
	root.AddCommand(newLogoutCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newBearerCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newGeocodeCmd())
	root.AddCommand(newSearchCmd())

	return root
}

// app bundles the wired-up components a command needs. Close must be
// called when the command is done.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      twitter.Store
	client     *twitter.Client
	bearer     *twitter.BearerSource
	authorizer *twitter.Authorizer

	closeStore func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)

	endpoints, err := cfg.Endpoints()
	if err != nil {
		return nil, fmt.Errorf("resolving endpoints: %w", err)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	signer := oauth.NewSigner(cfg.ConsumerKey, cfg.ConsumerSecret)
	bearer := twitter.NewBearerSource(nil, cfg.ConsumerKey, cfg.ConsumerSecret, endpoints.BearerTokenURL, store, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		client:     twitter.NewClient(nil, signer, endpoints, store, bearer, logger),
		bearer:     bearer,
		authorizer: twitter.NewAuthorizer(nil, signer, endpoints, store, logger),
		closeStore: closeStore,
	}, nil
}

func (a *app) Close() {
	if err := a.closeStore(); err != nil {
		a.logger.Warn("closing credential store", slog.String("error", err.Error()))
	}
}

func openStore(cfg *config.Config) (twitter.Store, func() error, error) {
	if cfg.StoreBackend == config.StoreKeyring {
		kr := state.NewKeyring()
		if !kr.Available() {
			return nil, nil, fmt.Errorf("OS keyring is not available; set STORE_BACKEND=file")
		}

		return kr, func() error { return nil }, nil
	}

	var (
		st  *state.State
		err error
	)

	if cfg.StatePath != "" {
		st, err = state.LoadAt(cfg.StatePath)
	} else {
		st, err = state.Load()
	}

	if err != nil {
		return nil, nil, err
	}

	return st, st.Close, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newLoginCmd() *cobra.Command {
	var forceLogin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run the three-legged OAuth handshake",
		Long: `Run the three-legged OAuth handshake.

This prints an authorization URL to open in a browser. After approving
access, the provider redirects to a custom-scheme callback URL; paste
that URL back here to finish the handshake.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			return runLogin(ctx, a, forceLogin)
		},
	}

	cmd.Flags().BoolVar(&forceLogin, "force-login", false, "make the provider re-prompt for account credentials")

	return cmd
}

func runLogin(ctx context.Context, a *app, forceLogin bool) error {
	router := routing.NewRouter(a.cfg.CallbackScheme)
	a.authorizer.Register(router)

	callbackURL := twitter.CallbackURL(a.cfg.CallbackScheme)

	handshake, err := a.authorizer.Authorize(ctx, callbackURL, forceLogin)
	if err != nil {
		return fmt.Errorf("starting handshake: %w", err)
	}

	fmt.Printf("Open this URL in a browser and approve access:\n\n  %s\n\n", handshake.AuthorizeURL)
	fmt.Printf("Then paste the %s:// URL the provider redirected to:\n> ", a.cfg.CallbackScheme)

	lines := make(chan string, 1)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}

		close(lines)
	}()

	select {
	case <-ctx.Done():
		a.authorizer.Cancel()
		<-handshake.Done

		return ctx.Err()
	case line, ok := <-lines:
		if !ok || line == "" {
			a.authorizer.Cancel()
			<-handshake.Done

			return fmt.Errorf("no callback URL provided")
		}

		if !router.Route(line) {
			a.authorizer.Cancel()
			<-handshake.Done

			return fmt.Errorf("callback URL not recognized: %s", line)
		}
	}

	select {
	case <-ctx.Done():
		a.authorizer.Cancel()
		<-handshake.Done

		return ctx.Err()
	case result := <-handshake.Done:
		if result.Err != nil {
			return fmt.Errorf("handshake failed: %w", result.Err)
		}

		if result.Credential.ScreenName != "" {
			fmt.Printf("Logged in as @%s\n", result.Credential.ScreenName)
		} else {
			fmt.Println("Logged in")
		}

		return nil
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored user credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.authorizer.Logout(); err != nil {
				return fmt.Errorf("removing credential: %w", err)
			}

			fmt.Println("Logged out")

			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store backend and authorization state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Printf("Store backend: %s\n", a.cfg.StoreBackend)

			authorized, err := a.authorizer.Authorized()
			if err != nil {
				return fmt.Errorf("reading credential: %w", err)
			}

			if !authorized {
				fmt.Println("Not logged in")
				return nil
			}

			cred, _, err := a.store.Credential()
			if err != nil {
				return fmt.Errorf("reading credential: %w", err)
			}

			if cred.ScreenName != "" {
				fmt.Printf("Logged in as @%s\n", cred.ScreenName)
			} else {
				fmt.Println("Logged in")
			}

			return nil
		},
	}
}

func newBearerCmd() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "bearer",
		Short: "Print the app-only bearer token",
		Long: `Print the app-only bearer token, fetching one if none is stored.

The token is printed bare so it can be used in scripts:

  curl -H "Authorization: Bearer $(places-auth bearer)" ...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			var token string
			if refresh {
				token, err = a.bearer.Refresh(ctx)
			} else {
				token, err = a.bearer.Token(ctx)
			}

			if err != nil {
				return fmt.Errorf("obtaining bearer token: %w", err)
			}

			fmt.Println(token)

			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "discard the stored token and fetch a new one")

	return cmd
}

func newGetCmd() *cobra.Command {
	var (
		appOnly bool
		params  []string
	)

	cmd := &cobra.Command{
		Use:   "get <endpoint>",
		Short: "Perform an authenticated GET against the API",
		Long: `Perform an authenticated GET against an API endpoint and print the
response body.

The endpoint is relative to the API base, for example:

  places-auth get geo/reverse_geocode.json -p lat=40.65 -p long=-73.94`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			query := url.Values{}

			for _, p := range params {
				key, value, found := strings.Cut(p, "=")
				if !found || key == "" {
					return fmt.Errorf("invalid parameter %q, want key=value", p)
				}

				query.Add(key, value)
			}

			var body []byte
			if appOnly {
				body, err = a.client.GetAppOnly(ctx, args[0], query)
			} else {
				body, err = a.client.GetUser(ctx, args[0], query)
			}

			if err != nil {
				return err
			}

			fmt.Println(string(body))

			return nil
		},
	}

	cmd.Flags().BoolVar(&appOnly, "app-only", false, "use app-only bearer auth instead of the user credential")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "query parameter as key=value, repeatable")

	return cmd
}

func newGeocodeCmd() *cobra.Command {
	var (
		accuracy    float64
		granularity string
		maxResults  int
	)

	cmd := &cobra.Command{
		Use:   "geocode <lat> <long>",
		Short: "Reverse geocode a coordinate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, long, err := parseCoordinate(args[0], args[1])
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			places, err := a.client.ReverseGeocode(ctx, lat, long, accuracy, granularity, maxResults)
			if err != nil {
				return err
			}

			printPlaces(places)

			return nil
		},
	}

	cmd.Flags().Float64Var(&accuracy, "accuracy", 0, "radius hint in meters")
	cmd.Flags().StringVar(&granularity, "granularity", "", "neighborhood, city, admin or country")
	cmd.Flags().IntVar(&maxResults, "max-results", 0, "maximum number of places to return")

	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		lat  float64
		long float64
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search places by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext()
			defer stop()

			places, err := a.client.SearchPlaces(ctx, args[0], lat, long)
			if err != nil {
				return err
			}

			printPlaces(places)

			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude to search near")
	cmd.Flags().Float64Var(&long, "long", 0, "longitude to search near")

	return cmd
}

func parseCoordinate(latArg, longArg string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q", latArg)
	}

	long, err := strconv.ParseFloat(longArg, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q", longArg)
	}

	return lat, long, nil
}

func printPlaces(places []twitter.Place) {
	if len(places) == 0 {
		fmt.Println("No places found")
		return
	}

	for _, p := range places {
		fmt.Printf("%s\t%s\t%s\t(%f, %f)\n", p.ID, p.FullName, p.PlaceType, p.Latitude, p.Longitude)
	}
}
