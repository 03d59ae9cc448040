package main

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/spf13/cobra"

	"github.com/agusx1211/fluorescent/internal/config"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

type app struct {
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "fluorescent",
		Short:         "Fluorescent tube flicker simulator.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "YAML config file")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newRunCmd(a), newGenerateCmd(a), newSampleCmd(a))
	return root
}

// newSeed draws a strike seed from the system entropy source, falling back to
// the clock.
func newSeed() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint32(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint32(b[:])
}
