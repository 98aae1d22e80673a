package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"icalmasto/internal/masto"
)

var rootCmd = &cobra.Command{
	Use:           "icalmasto",
	Short:         "Post upcoming calendar events to Mastodon",
	Long:          "icalmasto reads an iCalendar feed and posts human-readable summaries of upcoming events to a Mastodon account.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(newRegisterAppCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newPostCmd())
	rootCmd.AddCommand(newAnnounceCmd())
	rootCmd.AddCommand(newWatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRegisterAppCmd() *cobra.Command {
	var (
		instance    string
		clientName  string
		redirectURI string
		scopes      string
		website     string
	)

	cmd := &cobra.Command{
		Use:   "register-app",
		Short: "Register an application with a Mastodon instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := masto.NewClient(instance)
			app, err := client.RegisterApp(cmd.Context(), clientName, redirectURI, scopes, website)
			if err != nil {
				return fmt.Errorf("register app: %w", err)
			}

			fmt.Println("Application registered successfully!")
			fmt.Println("Save these credentials for authentication:")
			fmt.Printf("  client-id:     %s\n", app.ClientID)
			fmt.Printf("  client-secret: %s\n", app.ClientSecret)
			fmt.Println()
			fmt.Println("Next: run the login command with these credentials.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&instance, "instance", "i", "", "Mastodon instance base URL")
	cmd.Flags().StringVarP(&clientName, "client-name", "c", "icalmasto", "Application name to register")
	cmd.Flags().StringVarP(&redirectURI, "redirect-uri", "r", "", "OAuth redirect URI (default: out-of-band)")
	cmd.Flags().StringVarP(&scopes, "scopes", "s", "", "OAuth scopes (default: \"read write\")")
	cmd.Flags().StringVarP(&website, "website", "w", "", "Application website")
	_ = cmd.MarkFlagRequired("instance")

	return cmd
}

func newLoginCmd() *cobra.Command {
	var (
		instance     string
		clientID     string
		clientSecret string
		redirectURI  string
		tokenFile    string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a Mastodon instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := masto.NewClient(instance)

			fmt.Println("Please open this URL in your browser to authorize the application:")
			fmt.Println(client.AuthorizeURL(clientID, redirectURI, ""))
			fmt.Println()
			fmt.Println("After authorizing, paste the authorization code here:")

			reader := bufio.NewReader(cmd.InOrStdin())
			code, err := reader.ReadString('\n')
			if err != nil && code == "" {
				return fmt.Errorf("read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("no authorization code given")
			}

			token, err := client.ExchangeCode(cmd.Context(), clientID, clientSecret, redirectURI, code)
			if err != nil {
				return fmt.Errorf("exchange code: %w", err)
			}

			path := tokenFile
			if path == "" {
				path, err = masto.DefaultTokenPath()
				if err != nil {
					return fmt.Errorf("resolve token path: %w", err)
				}
			}

			creds := &masto.Credentials{
				Instance:     instance,
				ClientID:     clientID,
				ClientSecret: clientSecret,
				AccessToken:  token,
			}
			if err := masto.SaveCredentials(path, creds); err != nil {
				return fmt.Errorf("save credentials: %w", err)
			}

			fmt.Println("Login successful!")
			fmt.Printf("Authentication token saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&instance, "instance", "i", "", "Mastodon instance base URL")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client ID from register-app")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth client secret from register-app")
	cmd.Flags().StringVarP(&redirectURI, "redirect-uri", "r", "", "OAuth redirect URI (default: out-of-band)")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "Where to save the credentials (default: user config dir)")
	_ = cmd.MarkFlagRequired("instance")
	_ = cmd.MarkFlagRequired("client-id")
	_ = cmd.MarkFlagRequired("client-secret")

	return cmd
}

func newPostCmd() *cobra.Command {
	var (
		status      string
		visibility  string
		sensitive   bool
		spoilerText string
		language    string
		inReplyToID string
		tokenFile   string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a status to Mastodon",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := loadCredentials(tokenFile)
			if err != nil {
				return err
			}

			client := masto.NewClient(creds.Instance)
			posted, err := client.PostStatus(cmd.Context(), creds.AccessToken, masto.NewStatus{
				Status:      status,
				Visibility:  visibility,
				Sensitive:   sensitive,
				SpoilerText: spoilerText,
				Language:    language,
				InReplyToID: inReplyToID,
			})
			if err != nil {
				return fmt.Errorf("post status: %w", err)
			}

			fmt.Println("Status posted successfully!")
			fmt.Printf("ID: %s\n", posted.ID)
			if posted.URL != "" {
				fmt.Printf("URL: %s\n", posted.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Status text to post")
	cmd.Flags().StringVar(&visibility, "visibility", "", "Status visibility (public, unlisted, private, direct)")
	cmd.Flags().BoolVar(&sensitive, "sensitive", false, "Mark the status as sensitive")
	cmd.Flags().StringVar(&spoilerText, "spoiler-text", "", "Content warning text")
	cmd.Flags().StringVar(&language, "language", "", "ISO language code of the status")
	cmd.Flags().StringVar(&inReplyToID, "in-reply-to-id", "", "ID of the status being replied to")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "Credentials file (default: user config dir)")
	_ = cmd.MarkFlagRequired("status")

	return cmd
}

func loadCredentials(tokenFile string) (*masto.Credentials, error) {
	path := tokenFile
	if path == "" {
		var err error
		path, err = masto.DefaultTokenPath()
		if err != nil {
			return nil, fmt.Errorf("resolve token path: %w", err)
		}
	}
	return masto.LoadCredentials(path)
}
