// Command signature signs scoring payloads with a wallet hotkey and checks
// Epistula headers against a body, for exercising the validator's /scoring
// endpoint by hand.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/0xxfu/prompting/internal/utils/logger"
	"github.com/0xxfu/prompting/pkg/signature"
)

var rootCmd = &cobra.Command{
	Use:           "signature",
	Short:         "Sign and verify Epistula requests",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		level := zerolog.InfoLevel
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			level = zerolog.DebugLevel
		}
		logger.Setup(level)
	},
}

var signOpts struct {
	bittensorDir string
	coldkey      string
	hotkey       string
	signedFor    string
}

var verifyOpts struct {
	signer    string
	maxAge    time.Duration
	signature string
	nonce     string
	timestamp string
	signedFor string
}

var signCmd = &cobra.Command{
	Use:   "sign FILE",
	Short: "Sign a request body and print the Epistula headers as JSON",
	Long:  "Sign a request body and print the Epistula headers as JSON. Use - to read the body from stdin.",
	Args:  cobra.ExactArgs(1),
	RunE:  runSign,
}

var verifyCmd = &cobra.Command{
	Use:   "verify FILE",
	Short: "Verify Epistula header values against a request body",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	signCmd.Flags().StringVar(&signOpts.bittensorDir, "bittensor-dir", signature.DefaultBittensorDir, "bittensor wallets root")
	signCmd.Flags().StringVar(&signOpts.coldkey, "coldkey", signature.DefaultWalletColdkey, "wallet coldkey name")
	signCmd.Flags().StringVar(&signOpts.hotkey, "hotkey", "default", "wallet hotkey name")
	signCmd.Flags().StringVar(&signOpts.signedFor, "signed-for", "", "SS58 address of the receiving validator")

	verifyCmd.Flags().StringVar(&verifyOpts.signer, "signer", "", "trusted SS58 address")
	verifyCmd.Flags().DurationVar(&verifyOpts.maxAge, "max-age", signature.DefaultMaxSignatureAge, "freshness window")
	verifyCmd.Flags().StringVar(&verifyOpts.signature, "signature", "", "Epistula-Request-Signature value")
	verifyCmd.Flags().StringVar(&verifyOpts.nonce, "nonce", "", "Epistula-Uuid value")
	verifyCmd.Flags().StringVar(&verifyOpts.timestamp, "timestamp", "", "Epistula-Timestamp value")
	verifyCmd.Flags().StringVar(&verifyOpts.signedFor, "signed-for", "", "Epistula-Signed-For value")
	_ = verifyCmd.MarkFlagRequired("signer")
	_ = verifyCmd.MarkFlagRequired("signature")

	rootCmd.AddCommand(signCmd, verifyCmd)
}

func readBody(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func runSign(cmd *cobra.Command, args []string) error {
	body, err := readBody(args[0])
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	keypair, err := signature.LoadKeypairFromHotkey(signOpts.bittensorDir, signOpts.coldkey, signOpts.hotkey)
	if err != nil {
		return err
	}
	provider, err := signature.NewProvider(keypair)
	if err != nil {
		return err
	}

	headers, err := signature.SignBody(provider, body, signOpts.signedFor)
	if err != nil {
		return err
	}
	log.Debug().Str("signed_by", provider.Address()).Int("bytes", len(body)).Msg("body signed")

	out, err := sonic.ConfigStd.MarshalIndent(headers.Map(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	body, err := readBody(args[0])
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	verifier, err := signature.NewEpistulaVerifier(verifyOpts.signer, verifyOpts.maxAge)
	if err != nil {
		return err
	}
	err = verifier.Verify(body, signature.EpistulaHeaders{
		Signature: verifyOpts.signature,
		SignedBy:  verifyOpts.signer,
		SignedFor: verifyOpts.signedFor,
		Nonce:     verifyOpts.nonce,
		Timestamp: verifyOpts.timestamp,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "signature valid")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
