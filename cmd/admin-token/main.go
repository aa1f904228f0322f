package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Flags for customization
	token := flag.String("token", "", "Service token to hash (random when empty)")
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	outputJSON := flag.Bool("json", false, "Output as JSON")

	flag.Parse()

	if *token == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
			os.Exit(1)
		}
		*token = base64.RawURLEncoding.EncodeToString(buf)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*token), *cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing token: %v\n", err)
		os.Exit(1)
	}

	if *outputJSON {
		output := map[string]any{
			"service_token":      *token,
			"service_token_hash": string(hash),
			"token_type":         "Bearer",
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(output)
		return
	}

	fmt.Println("Service Token Generated")
	fmt.Println("=======================")
	fmt.Println()
	fmt.Println("Token (give to the bot):")
	fmt.Println(*token)
	fmt.Println()
	fmt.Println("Server environment:")
	fmt.Printf("  SERVICE_TOKEN_HASH='%s'\n", hash)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  curl -H 'Authorization: Bearer %s' -H 'X-Team-Leader-ID: 1234' http://localhost:8080/v1/events\n", *token)
}
