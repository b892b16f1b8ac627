// Package cli exposes the linearis execution core as a set of cobra
// subcommands: publish a module, invoke a blueprint function, instantiate a
// component, call a component method, and serve a rate-limited read-only
// debug endpoint reporting the kernel namespace and configured step budget.
//
// Env variables (add to .env):
//   LINEARIS_ENV          – config profile merged over default.yaml (optional)
//   LOG_LEVEL             – trace|debug|info|warn|error (default info)
//   LINEARIS_DEBUG_ADDR   – listen address for the inspect server (default 127.0.0.1:8090)
//
// Usage examples after hooking into root CLI:
//   ~runtime publish ./blueprint.wasm --blueprints Counter,Wallet
//   ~runtime call-function <pkg-hex> Counter new --args <hex-sbor>
//   ~runtime instantiate <pkg-hex> Counter --state <hex-sbor>
//   ~runtime call-method <component-hex> increment --args <hex-sbor>
//   ~runtime inspect
package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"linearis/core"
	"linearis/pkg/config"
	"linearis/sbor"
)

var (
	runtimeSvc    *core.Runtime
	runtimeLog    = logrus.StandardLogger()
	runtimeOnce   sync.Once
	runtimeConfig config.Config
)

func initRuntimeMiddleware(cmd *cobra.Command, _ []string) error {
	var err error
	runtimeOnce.Do(func() {
		_ = godotenv.Load()

		lvlStr := os.Getenv("LOG_LEVEL")
		if lvlStr == "" {
			lvlStr = "info"
		}
		lvl, e := logrus.ParseLevel(lvlStr)
		if e != nil {
			err = fmt.Errorf("invalid LOG_LEVEL: %w", e)
			return
		}
		runtimeLog.SetLevel(lvl)

		cfg, cErr := config.LoadFromEnv()
		if cErr != nil {
			d := config.Default()
			cfg = &d
		}
		runtimeConfig = *cfg

		runtimeSvc = core.NewRuntime(cfg.Execution.DefaultStepBudget)
	})
	return err
}

// ──────────────────────────────────────────────────────────────────────────
// Helper utilities
// ──────────────────────────────────────────────────────────────────────────

func mustParseAddr(h string) (core.Address, error) {
	var a core.Address
	b, err := hex.DecodeString(strings.TrimPrefix(h, "0x"))
	if err != nil || len(b) != len(a) {
		return a, fmt.Errorf("invalid address %s", h)
	}
	copy(a[:], b)
	return a, nil
}

func decodeArgBytes(h string) ([]byte, error) {
	if h == "" {
		return nil, nil
	}
	return hex.DecodeString(strings.TrimPrefix(h, "0x"))
}

func decodeArgValue(h string) (sbor.Value, error) {
	b, err := decodeArgBytes(h)
	if err != nil {
		return nil, fmt.Errorf("args must be hex bytes: %w", err)
	}
	if len(b) == 0 {
		return sbor.Unit{}, nil
	}
	d := sbor.NewDecoder(b, true)
	return sbor.DecodeAny(d)
}

// ──────────────────────────────────────────────────────────────────────────
// Controllers
// ──────────────────────────────────────────────────────────────────────────

type publishFlags struct {
	wasm       string
	blueprints []string
}

func handlePublish(cmd *cobra.Command, _ []string) error {
	pf := cmd.Context().Value("pflags").(publishFlags)

	code, err := os.ReadFile(pf.wasm)
	if err != nil {
		return err
	}

	addr, err := runtimeSvc.Publish(code, pf.blueprints)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", addr.String())
	return nil
}

type callFunctionFlags struct {
	pkg, blueprint, function, args string
}

func handleCallFunction(cmd *cobra.Command, _ []string) error {
	cf := cmd.Context().Value("cfflags").(callFunctionFlags)

	pkgAddr, err := mustParseAddr(cf.pkg)
	if err != nil {
		return err
	}
	argVal, err := decodeArgValue(cf.args)
	if err != nil {
		return err
	}

	ret, err := runtimeSvc.CallFunction(pkgAddr, cf.blueprint, cf.function, argVal)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%x\n", sbor.Encode(ret))
	return nil
}

type instantiateFlags struct {
	pkg, blueprint, state string
}

func handleInstantiate(cmd *cobra.Command, _ []string) error {
	inf := cmd.Context().Value("iflags").(instantiateFlags)

	pkgAddr, err := mustParseAddr(inf.pkg)
	if err != nil {
		return err
	}
	state, err := decodeArgBytes(inf.state)
	if err != nil {
		return fmt.Errorf("state must be hex bytes: %w", err)
	}

	addr, err := runtimeSvc.InstantiateComponent(pkgAddr, inf.blueprint, state)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "instantiated %s\n", addr.String())
	return nil
}

type callMethodFlags struct {
	component, method, args string
}

func handleCallMethod(cmd *cobra.Command, args []string) error {
	cm := cmd.Context().Value("cmflags").(callMethodFlags)

	compAddr, err := mustParseAddr(cm.component)
	if err != nil {
		return err
	}
	argVal, err := decodeArgValue(cm.args)
	if err != nil {
		return err
	}

	ret, err := runtimeSvc.CallMethod(compAddr, cm.method, argVal)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%x\n", sbor.Encode(ret))
	return nil
}

// handleInspect starts a rate-limited, read-only HTTP endpoint reporting
// the kernel namespace and configured step budget — never an execute-over-HTTP surface, since
// that would reintroduce networked ingress this core deliberately excludes.
func handleInspect(cmd *cobra.Command, _ []string) error {
	addr := os.Getenv("LINEARIS_DEBUG_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8090"
	}

	limiter := rate.NewLimiter(rate.Limit(10), 20)
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"kernel_namespace": core.KernelNamespace,
			"step_budget":      runtimeConfig.Execution.DefaultStepBudget,
		})
	}).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	runtimeLog.WithField("addr", addr).Info("inspect endpoint listening")
	return srv.ListenAndServe()
}

// ──────────────────────────────────────────────────────────────────────────
// Cobra command tree
// ──────────────────────────────────────────────────────────────────────────

var runtimeCmd = &cobra.Command{
	Use:               "runtime",
	Short:             "Publish, call, instantiate and inspect linear-resource contracts",
	PersistentPreRunE: initRuntimeMiddleware,
}

var publishCmd = &cobra.Command{
	Use:   "publish <module.wasm>",
	Short: "Validate and register a module's blueprints",
	Args:  cobra.ExactArgs(1),
	RunE:  handlePublish,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		names, _ := cmd.Flags().GetStringSlice("blueprints")
		cmd.SetContext(context.WithValue(cmd.Context(), "pflags", publishFlags{wasm: args[0], blueprints: names}))
		return nil
	},
}

var callFunctionCmd = &cobra.Command{
	Use:   "call-function <pkg-address> <blueprint> <function>",
	Short: "Invoke a blueprint-level function with no component context",
	Args:  cobra.ExactArgs(3),
	RunE:  handleCallFunction,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		argHex, _ := cmd.Flags().GetString("args")
		cf := callFunctionFlags{pkg: args[0], blueprint: args[1], function: args[2], args: argHex}
		cmd.SetContext(context.WithValue(cmd.Context(), "cfflags", cf))
		return nil
	},
}

var instantiateCmd = &cobra.Command{
	Use:   "instantiate <pkg-address> <blueprint>",
	Short: "Create a component instance from a published blueprint",
	Args:  cobra.ExactArgs(2),
	RunE:  handleInstantiate,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		state, _ := cmd.Flags().GetString("state")
		cmd.SetContext(context.WithValue(cmd.Context(), "iflags", instantiateFlags{pkg: args[0], blueprint: args[1], state: state}))
		return nil
	},
}

var callMethodCmd = &cobra.Command{
	Use:   "call-method <component-address> <method>",
	Short: "Invoke a method on an instantiated component",
	Args:  cobra.ExactArgs(2),
	RunE:  handleCallMethod,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		argHex, _ := cmd.Flags().GetString("args")
		cmd.SetContext(context.WithValue(cmd.Context(), "cmflags", callMethodFlags{component: args[0], method: args[1], args: argHex}))
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Serve a rate-limited read-only status endpoint",
	Args:  cobra.NoArgs,
	RunE:  handleInspect,
}

func init() {
	publishCmd.Flags().StringSlice("blueprints", nil, "comma-separated blueprint names exported by the module")

	callFunctionCmd.Flags().String("args", "", "hex-encoded SBOR argument value")
	instantiateCmd.Flags().String("state", "", "hex-encoded SBOR no-metadata initial state")
	callMethodCmd.Flags().String("args", "", "hex-encoded SBOR argument value")

	runtimeCmd.AddCommand(publishCmd, callFunctionCmd, instantiateCmd, callMethodCmd, inspectCmd)
}

// RuntimeCmd is the consolidated export cmd/linearis wires into its root.
var RuntimeCmd = runtimeCmd
