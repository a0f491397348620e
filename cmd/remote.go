package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"telly/internal/device"
)

var (
	remoteHost     string
	remoteBrand    string
	remoteNoPrompt bool
	remoteTimeout  time.Duration
)

var remoteCmd = &cobra.Command{
	Use:   "remote [tv] [command]",
	Short: "Send a remote-control command to a TV",
	Long: `Send a remote-control command to a configured TV, looked up by id or nickname.
Use --host to reach a TV that is not in the configuration file. When the TV asks
for a PIN or pre-shared key the command prompts for it and resumes once paired.
Run "telly commands" for the list of commands.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		command, err := device.ParseCommand(args[1])
		if err != nil {
			return err
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		profile, err := a.profile(args[0], remoteHost, remoteBrand)
		if err != nil {
			return err
		}

		log.Debug().
			Str("tv", profile.DisplayName()).
			Str("brand", profile.Brand.String()).
			Str("command", command.String()).
			Msg("Sending command")

		ask := func(req *device.PairingRequest) (string, error) {
			return prompt(req.Prompt())
		}
		if remoteNoPrompt {
			ask = nil
		}

		result, err := sendInteractive(cmd.Context(), a.router, profile, command, ask, remoteTimeout)
		if err != nil {
			return err
		}
		return report(result)
	},
}

// engine is the part of the router the remote command drives
type engine interface {
	Dispatch(ctx context.Context, p device.Profile, cmd device.Command) device.Result
	CompletePairing(ctx context.Context, p device.Profile, secret string, challenge *device.PairingRequest) device.Result
}

// sendInteractive dispatches cmd and, when the TV asks for a secret and ask is
// set, completes the pairing. Dispatch and pairing each get their own timeout.
func sendInteractive(parent context.Context, e engine, p device.Profile, cmd device.Command,
	ask func(*device.PairingRequest) (string, error), timeout time.Duration) (device.Result, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	result := e.Dispatch(ctx, p, cmd)
	cancel()

	if result.Pairing == nil || ask == nil {
		return result, nil
	}

	fmt.Println(result.Message)
	secret, err := ask(result.Pairing)
	if err != nil {
		return device.Result{}, err
	}

	ctx, cancel = context.WithTimeout(parent, timeout)
	defer cancel()
	return e.CompletePairing(ctx, p, secret, result.Pairing), nil
}

var pairCmd = &cobra.Command{
	Use:   "pair [tv] [secret]",
	Short: "Complete a pending pairing with a PIN or pre-shared key",
	Long: `Complete the pairing a previous command started. The suspended command is
replayed once the TV accepts the secret. Sony TVs can be paired up front with
their pre-shared key.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		profile, err := a.profile(args[0], remoteHost, remoteBrand)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), remoteTimeout)
		defer cancel()

		return report(a.router.CompletePairing(ctx, profile, args[1], nil))
	},
}

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the remote-control commands",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range device.Commands() {
			fmt.Println(c)
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{remoteCmd, pairCmd} {
		c.Flags().StringVar(&remoteHost, "host", "", "TV address, overrides the configured host")
		c.Flags().StringVar(&remoteBrand, "brand", "", "TV brand, overrides the configured brand")
		c.Flags().DurationVar(&remoteTimeout, "timeout", 45*time.Second, "overall time budget")
	}
	remoteCmd.Flags().BoolVar(&remoteNoPrompt, "no-prompt", false, "print pairing challenges instead of prompting")
}

func prompt(question string) (string, error) {
	fmt.Printf("%s: ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	secret := strings.TrimSpace(line)
	if secret == "" {
		return "", errors.New("no secret entered")
	}
	return secret, nil
}

// report prints the result and turns a failure into a non-zero exit
func report(r device.Result) error {
	if r.OK {
		fmt.Println(r.Message)
		return nil
	}
	if r.Pairing != nil {
		fmt.Printf("%s\n%s, then run: telly pair <tv> <secret>\n", r.Message, r.Pairing.Prompt())
		return errors.New("pairing required")
	}
	return errors.New(r.Message)
}
