package main

import (
	"flag"
	"fmt"
	"net/mail"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	email := flag.String("email", "", "user email to embed in the token (required)")
	secret := flag.String("secret", "", "HMAC signing secret (or set JWT_SECRET env var)")
	expiry := flag.Duration("exp", 24*time.Hour, "token expiry duration (e.g. 1h, 72h)")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "error: -email flag is required")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := mail.ParseAddress(*email); err != nil {
		fmt.Fprintf(os.Stderr, "error: %q is not a valid email address\n", *email)
		os.Exit(1)
	}

	signingSecret := *secret
	if signingSecret == "" {
		signingSecret = os.Getenv("JWT_SECRET")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   *email,
		"email": *email,
		"iat":   now.Unix(),
		"exp":   now.Add(*expiry).Unix(),
	}

	signed, err := sign(claims, signingSecret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating token: %v\n", err)
		os.Exit(1)
	}
	if signingSecret == "" {
		fmt.Fprintln(os.Stderr, "Warning: token is unsigned (alg=none); do not use in production")
	}

	fmt.Fprintf(os.Stderr, "Token for %s (expires %s):\n", *email, now.Add(*expiry).Format(time.RFC3339))
	fmt.Fprintf(os.Stderr, "Use it as \"Authorization: Bearer <token>\" or as the session cookie.\n")
	fmt.Println(signed)
}

func sign(claims jwt.MapClaims, secret string) (string, error) {
	if secret == "" {
		return jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
