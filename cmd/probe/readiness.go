package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/go-keyring/internal/util/command"
)

const (
	timeoutFlag    = "timeout"
	defaultTimeout = 5 * time.Second
)

var errNotReady = errors.New("server is not ready")

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Checks the readiness endpoint of a running server",
		Long: `Requests /-/ready on the configured listen address and exits
non-zero unless the server answers 200.`,
		Args: cobra.NoArgs,
		RunE: readinessCmdFunc,
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "print the response body")
	cmd.Flags().Duration(timeoutFlag, defaultTimeout, "request timeout")

	return cmd
}

func readinessCmdFunc(cmd *cobra.Command, _ []string) error {
	cfg, err := command.Config(cmd)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool(verboseFlag)
	timeout, _ := cmd.Flags().GetDuration(timeoutFlag)

	status, body, err := probe(cmd.Context(), fmt.Sprintf("http://%s/-/ready", cfg.Echo.ListenAddress), timeout)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintln(cmd.OutOrStdout(), body)
	}

	if status != http.StatusOK {
		log.Warn().Int("status", status).Msg("Readiness probe failed")
		return errors.Wrapf(errNotReady, "status %d", status)
	}

	log.Debug().Msg("Readiness probe succeeded")
	return nil
}

func probe(ctx context.Context, url string, timeout time.Duration) (int, string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, "", errors.Wrap(err, "failed to create request")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", errors.Wrap(err, "failed to reach server")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err != nil {
		return res.StatusCode, "", errors.Wrap(err, "failed to read response")
	}

	return res.StatusCode, string(body), nil
}
