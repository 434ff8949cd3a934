package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/listenupapp/doujinshelf/internal/config"
	"github.com/listenupapp/doujinshelf/internal/di/providers"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/remote"
	"github.com/listenupapp/doujinshelf/internal/remote/ehentai"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var (
		memberID string
		passHash string
		igneous  string
		check    bool
	)

	cmd := &cobra.Command{
		Use:   "login [source]",
		Short: "Store login cookies for a remote source",
		Long: `Login saves the session cookies a source needs and verifies them. For
ehentai these are ipb_member_id and ipb_pass_hash (and optionally igneous);
values missing from the flags are read from the sources.ehentai config.
With --check the saved session is only verified.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ehentai.Name
			if len(args) == 1 {
				name = args[0]
			}

			registry, err := invoke[*providers.RegistryHandle](ctx)
			if err != nil {
				return err
			}
			adapter, ok := registry.Get(name)
			if !ok {
				return errors.Wrapf(errors.ErrUnsupportedSource, errors.CodeUnsupportedSource, "unknown source %q", name)
			}

			w := out(cmd)
			if check {
				ok, err := adapter.CheckLogin(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s logged in: %s\n", name, yesNo(ok))
				return nil
			}

			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			creds := credentials(cfg, memberID, passHash, igneous)
			if _, err := adapter.Login(cmd.Context(), creds); err != nil {
				return err
			}
			fmt.Fprintf(w, "Logged in to %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&memberID, "member-id", "", "ipb_member_id cookie")
	cmd.Flags().StringVar(&passHash, "pass-hash", "", "ipb_pass_hash cookie")
	cmd.Flags().StringVar(&igneous, "igneous", "", "igneous cookie")
	cmd.Flags().BoolVar(&check, "check", false, "Only verify the saved session")
	return cmd
}

func credentials(cfg *config.Config, memberID, passHash, igneous string) remote.Credentials {
	pick := func(flag, fromConfig string) string {
		if flag != "" {
			return flag
		}
		return fromConfig
	}
	return remote.Credentials{
		ehentai.CookieMemberID: pick(memberID, cfg.Sources.EHentai.MemberID),
		ehentai.CookiePassHash: pick(passHash, cfg.Sources.EHentai.PassHash),
		ehentai.CookieIgneous:  pick(igneous, cfg.Sources.EHentai.Igneous),
	}
}
