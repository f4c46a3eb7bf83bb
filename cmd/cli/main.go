// Command gm is a CLI client for the grader marketplace HTTP API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "grader-market")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "grader-market")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tokenFile{AccessToken: tok, ExpiresAt: exp})
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login and verify required)")
	}
	return tf.AccessToken, nil
}

func clientIDPath() string { return filepath.Join(cfgDir(), "client_id") }

// loadClientID returns the saved anonymous session id, creating one on first use.
func loadClientID() (string, error) {
	if b, err := os.ReadFile(clientIDPath()); err == nil {
		if id := strings.TrimSpace(string(b)); id != "" {
			return id, nil
		}
	}
	id := uuid.Must(uuid.NewV4()).String()
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return "", err
	}
	return id, os.WriteFile(clientIDPath(), []byte(id), 0o600)
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `gm CLI
Usage:
  gm -addr URL <cmd> [args]

Commands:
  version
  health
  list       [-kind k] [-brand b] [-category c] [-country c] [-status s]
             [-min n] [-max n] [-q text] [-sort key]
  search     -q <text> [-limit n]
  get        -id <uuid>
  favs                                         (favorites of this machine)
  fav        -id <uuid>                        (toggle)
  chat       -m <message> [-consent]
  login      -e <email> -p <password>          (sends a code by e-mail)
  verify     -e <email> -c <code>              (saves token)
  resend     -e <email>
  add        -file <listing.json|->            (admin)
  edit       -id <uuid> -file <listing.json|-> (admin)
  rm         -id <uuid>                        (admin)
  upload     -id <uuid> -file <image>          (admin)
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

func needID(fs *flag.FlagSet, id string) string {
	if _, err := uuid.FromString(id); err != nil {
		fmt.Fprintln(os.Stderr, "need -id <uuid>")
		fs.Usage()
		os.Exit(1)
	}
	return id
}

func admin(c *client) {
	tok, err := loadToken()
	if err != nil {
		fail(err)
	}
	c.token = tok
}

// main dispatches subcommands against the HTTP API.
func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c := newClient(*addr)

	switch cmd {

	case "version":
		fmt.Printf("gm %s (%s)\n", version, buildDate)

	case "health":
		var out map[string]string
		if err := c.do(ctx, http.MethodGet, "/healthz", nil, &out); err != nil {
			fail(err)
		}
		fmt.Println(out["status"])

	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		p := map[string]*string{
			"kind":      fs.String("kind", "", "grader|part"),
			"brand":     fs.String("brand", "", "brand, comma separated"),
			"category":  fs.String("category", "", "category, comma separated"),
			"country":   fs.String("country", "", "EU|Kenya|US"),
			"status":    fs.String("status", "", "for-sale|sold"),
			"min_price": fs.String("min", "", "min price"),
			"max_price": fs.String("max", "", "max price"),
			"q":         fs.String("q", "", "free text"),
			"sort":      fs.String("sort", "", "newest|oldest|price-low|price-high"),
		}
		_ = fs.Parse(args)
		params := make(map[string]string, len(p))
		for k, v := range p {
			params[k] = *v
		}
		var out []json.RawMessage
		if err := c.do(ctx, http.MethodGet, "/api/listings"+listQuery(params), nil, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "search":
		fs := flag.NewFlagSet("search", flag.ExitOnError)
		q := fs.String("q", "", "text")
		limit := fs.Int("limit", 10, "max results")
		_ = fs.Parse(args)
		path := "/api/listings/search" + listQuery(map[string]string{"q": *q, "limit": fmt.Sprint(*limit)})
		var out []json.RawMessage
		if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "get":
		fs := flag.NewFlagSet("get", flag.ExitOnError)
		id := fs.String("id", "", "listing id")
		_ = fs.Parse(args)
		var out json.RawMessage
		if err := c.do(ctx, http.MethodGet, "/api/listings/"+needID(fs, *id), nil, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "favs", "fav":
		cid, err := loadClientID()
		if err != nil {
			fail(err)
		}
		c.clientID = cid
		if cmd == "favs" {
			var out []json.RawMessage
			if err := c.do(ctx, http.MethodGet, "/api/favorites", nil, &out); err != nil {
				fail(err)
			}
			printJSON(out)
			return
		}
		fs := flag.NewFlagSet("fav", flag.ExitOnError)
		id := fs.String("id", "", "listing id")
		_ = fs.Parse(args)
		var out map[string]bool
		if err := c.do(ctx, http.MethodPost, "/api/favorites/"+needID(fs, *id)+"/toggle", nil, &out); err != nil {
			fail(err)
		}
		if out["favorite"] {
			fmt.Println("added to favorites")
		} else {
			fmt.Println("removed from favorites")
		}

	case "chat":
		fs := flag.NewFlagSet("chat", flag.ExitOnError)
		m := fs.String("m", "", "message")
		consent := fs.Bool("consent", false, "allow analytics for this message")
		_ = fs.Parse(args)
		if cid, err := loadClientID(); err == nil {
			c.clientID = cid
		}
		var out struct {
			Reply    string            `json:"reply"`
			Listings []json.RawMessage `json:"listings"`
		}
		if err := c.do(ctx, http.MethodPost, "/api/chat", map[string]any{"message": *m, "consent": *consent}, &out); err != nil {
			fail(err)
		}
		fmt.Println(out.Reply)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		e := fs.String("e", "", "e-mail")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *e == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -e and -p")
			os.Exit(1)
		}
		if err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": *e, "password": *p}, nil); err != nil {
			fail(err)
		}
		fmt.Println("verification code sent; run: gm verify -e", *e, "-c <code>")

	case "verify":
		fs := flag.NewFlagSet("verify", flag.ExitOnError)
		e := fs.String("e", "", "e-mail")
		code := fs.String("c", "", "6-digit code")
		_ = fs.Parse(args)
		var out struct {
			AccessToken string    `json:"accessToken"`
			ExpiresAt   time.Time `json:"expiresAt"`
			Admin       struct {
				Name string `json:"name"`
			} `json:"admin"`
		}
		if err := c.do(ctx, http.MethodPost, "/api/auth/verify", map[string]string{"email": *e, "code": *code}, &out); err != nil {
			fail(err)
		}
		if err := saveToken(out.AccessToken, out.ExpiresAt); err != nil {
			fail(err)
		}
		fmt.Printf("welcome, %s; token valid until %s\n", out.Admin.Name, out.ExpiresAt.Local().Format(time.RFC1123))

	case "resend":
		fs := flag.NewFlagSet("resend", flag.ExitOnError)
		e := fs.String("e", "", "e-mail")
		_ = fs.Parse(args)
		if err := c.do(ctx, http.MethodPost, "/api/auth/resend", map[string]string{"email": *e}, nil); err != nil {
			fail(err)
		}
		fmt.Println("a new code was sent")

	case "add", "edit":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		id := fs.String("id", "", "listing id (edit)")
		file := fs.String("file", "", "listing JSON file or - for stdin")
		_ = fs.Parse(args)
		doc, err := readAll(*file)
		if err != nil {
			fail(err)
		}
		admin(c)
		method, path := http.MethodPost, "/api/admin/listings"
		if cmd == "edit" {
			method, path = http.MethodPut, path+"/"+needID(fs, *id)
		}
		var out json.RawMessage
		if err := c.doRaw(ctx, method, path, doc, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	case "rm":
		fs := flag.NewFlagSet("rm", flag.ExitOnError)
		id := fs.String("id", "", "listing id")
		_ = fs.Parse(args)
		admin(c)
		if err := c.do(ctx, http.MethodDelete, "/api/admin/listings/"+needID(fs, *id), nil, nil); err != nil {
			fail(err)
		}
		fmt.Println("deleted")

	case "upload":
		fs := flag.NewFlagSet("upload", flag.ExitOnError)
		id := fs.String("id", "", "listing id")
		file := fs.String("file", "", "image file")
		_ = fs.Parse(args)
		data, err := os.ReadFile(*file)
		if err != nil {
			fail(err)
		}
		admin(c)
		var out json.RawMessage
		if err := c.upload(ctx, "/api/admin/listings/"+url.PathEscape(needID(fs, *id))+"/images", *file, data, &out); err != nil {
			fail(err)
		}
		printJSON(out)

	default:
		usage()
	}
}

// ---- helpers ----

func fail(err error) {
	var ae *apiError
	if errors.As(err, &ae) {
		fmt.Fprintf(os.Stderr, "api error: %v\n", ae)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
