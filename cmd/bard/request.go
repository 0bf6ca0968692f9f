package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"codeberg.org/mutker/bard/internal/client"
	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/protocol"
	"codeberg.org/mutker/bard/internal/registry"
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "get [provider [leaf]]",
		Aliases: []string{"g"},
		Short:   "Print one value, one provider, or everything",
		Example: `  bard get
  bard get volume
  bard get vol percent
  bard get fan profile`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			item := protocol.All()
			if len(args) > 0 {
				var err error
				if item, err = parseItem(args[0], argAt(args, 1)); err != nil {
					return err
				}
			}

			return a.request(cmd.Context(), protocol.Get(item))
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "set provider leaf value",
		Aliases: []string{"s"},
		Short:   "Change a value",
		Long: `Change a value. Flags must come before the provider, so that negative
deltas such as -5 are read as values.`,
		Example: `  bard set volume percent +5
  bard set volume percent -5
  bard set volume mute true
  bard set brightness keyboard 0
  bard set bluetooth state off
  bard set fan profile next`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := parseItem(args[0], args[1])
			if err != nil {
				return err
			}

			return a.request(cmd.Context(), protocol.Set(item, args[2]))
		},
	}
	// stop at the first positional argument so "-5" is not parsed as a flag
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}

	return ""
}

func parseItem(providerName, leafName string) (protocol.Item, error) {
	errFactory := errors.New()

	k, ok := protocol.ParseKind(providerName)
	if !ok {
		return protocol.Item{}, errFactory.WithData(errors.ErrInvalidItem, "unknown provider '"+providerName+"'")
	}
	if k == protocol.KindAll {
		if leafName != "" {
			return protocol.Item{}, errFactory.WithData(errors.ErrInvalidItem, "'all' takes no leaf")
		}
		return protocol.All(), nil
	}

	l, ok := protocol.ParseLeaf(k, leafName)
	if !ok {
		return protocol.Item{}, errFactory.WithData(errors.ErrInvalidItem,
			"unknown "+k.String()+" leaf '"+leafName+"'")
	}

	return protocol.ItemOf(k, l), nil
}

func (a *app) request(ctx context.Context, msg protocol.Message) error {
	reply, err := client.New(a.cfg.Socket).Request(ctx, msg)
	if err != nil {
		return err
	}

	return printReply(a.stdout, reply)
}

// printReply prints scalar values as they are and tuples as JSON, in the
// same shape listeners receive.
func printReply(w io.Writer, reply protocol.Reply) error {
	switch reply.Type {
	case protocol.ReplyValue:
		_, err := fmt.Fprintln(w, reply.Value)
		return err
	case protocol.ReplyTuples:
		fields := make(map[string]string, len(reply.Tuples))
		for _, t := range reply.Tuples {
			fields[t.Name] = t.Value
		}
		data, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case protocol.ReplyAllTuples:
		data, err := registry.EncodeSnapshot(reply.Groups)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case protocol.ReplyError:
		return errors.New().WithMessage(errors.ErrInternal, strings.TrimSpace(reply.Value))
	}

	return errors.New().WithData(errors.ErrDecode, "unknown reply type "+reply.Type.String())
}
