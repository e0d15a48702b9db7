// Command tokenctl issues and inspects access tokens with the service codec.
//
//	tokenctl issue --id u1 --email u1@example.com --role ADMIN --tier SEEKER --perm analytics.export
//	tokenctl inspect <token>
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"guardianchain.app/internal/auth"
	"guardianchain.app/internal/config"
)

const usage = `usage:
  tokenctl issue --id ID --email EMAIL [--role ROLE] [--tier TIER] [--perm P]... [--ttl 24h]
  tokenctl inspect TOKEN`

// errPublic marks a token that does not verify; the principal is PUBLIC.
var errPublic = errors.New("token did not verify")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errPublic) {
			fmt.Fprintf(os.Stderr, "tokenctl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "issue":
		return issue(args[1:], stdout)
	case "inspect":
		return inspect(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprintln(stdout, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func codecFrom(envFile string, opts ...auth.CodecOption) (*auth.Codec, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	opts = append([]auth.CodecOption{auth.WithTTL(cfg.TokenTTL)}, opts...)
	return auth.NewCodec([]byte(cfg.AuthSecret), opts...)
}

func issue(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("issue", pflag.ContinueOnError)
	id := fs.String("id", "", "account id")
	email := fs.String("email", "", "account email")
	roleName := fs.String("role", auth.RoleUser.String(), "role")
	tierName := fs.String("tier", auth.TierExplorer.String(), "tier")
	perms := fs.StringSlice("perm", nil, "custom permission, repeatable")
	ttl := fs.Duration("ttl", 0, "validity window (default: GUARDIAN_TOKEN_TTL)")
	asJSON := fs.Bool("json", false, "print token and window as JSON")
	envFile := fs.String("env-file", ".env", "optional dotenv file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	role, ok := auth.ParseRole(*roleName)
	if !ok {
		return fmt.Errorf("unknown role %q", *roleName)
	}
	tier, ok := auth.ParseTier(*tierName)
	if !ok {
		return fmt.Errorf("unknown tier %q", *tierName)
	}
	var opts []auth.CodecOption
	if *ttl != 0 {
		opts = append(opts, auth.WithTTL(*ttl))
	}
	codec, err := codecFrom(*envFile, opts...)
	if err != nil {
		return err
	}

	custom := make([]auth.Permission, 0, len(*perms))
	for _, p := range *perms {
		custom = append(custom, auth.Permission(strings.TrimSpace(p)))
	}
	tok, err := codec.Issue(auth.Basis{ID: *id, Email: *email, Role: role, Tier: tier}, custom...)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tok)
	}
	fmt.Fprintln(stdout, tok.Value)
	return nil
}

func inspect(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	envFile := fs.String("env-file", ".env", "optional dotenv file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New(usage)
	}
	codec, err := codecFrom(*envFile)
	if err != nil {
		return err
	}

	p, err := codec.Parse(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(stdout, auth.LevelPublic.String())
		fmt.Fprintf(stderr, "%v\n", err)
		return errPublic
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Level     string         `json:"level"`
		Principal auth.Principal `json:"principal"`
		CheckedAt time.Time      `json:"checked_at"`
	}{auth.LevelAuthenticated.String(), p, time.Now().UTC()})
}
