package console

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chzyer/readline"

	"github.com/pandablocks/panda-registry/pkg/model"
)

// Options configures an interactive session. Nil streams use the
// terminal.
type Options struct {
	Prompt string
	Stdin  io.ReadCloser
	Stdout io.Writer
}

// Run reads commands with line editing until "exit", end of input or
// cancellation of ctx.
func (c *Console) Run(ctx context.Context, opts Options) error {
	if opts.Prompt == "" {
		opts.Prompt = "registry> "
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          opts.Prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    c.completer(),
		Stdin:           opts.Stdin,
		Stdout:          opts.Stdout,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	c.logger.Info("console session started", "context", c.ContextID())
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			// EOF or closed
			return nil
		}

		out, quit := c.Execute(line)
		for _, l := range out {
			fmt.Fprintln(rl.Stdout(), l)
		}
		if quit {
			return nil
		}
	}
}

// completer completes entity names from the registry layout.
func (c *Console) completer() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("*BLOCKS?"),
		readline.PcItem("*METADATA?"),
		readline.PcItem("*CHANGES?"),
		readline.PcItemDynamic(func(string) []string { return c.entityNames() }),
	)
}

func (c *Console) entityNames() []string {
	var names []string
	for _, b := range c.reg.Blocks() {
		for _, f := range b.Fields() {
			for i := range b.Count() {
				names = append(names, f.InstanceName(i))
			}
		}
	}
	for _, key := range c.reg.MetadataKeys() {
		names = append(names, model.MetadataPrefix+key)
	}
	return names
}
