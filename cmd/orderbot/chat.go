package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/assistant"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/conversation"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Chat with the assistant line by line. Plain text is sent as a message;
commands start with a slash (type /help).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context(), os.Stderr)
		if err != nil {
			return err
		}
		defer a.Close()

		sess := a.sessions.Create(cmd.Context())
		return runChat(cmd.Context(), sess, a.catalog, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

const chatHelp = `Commands:
  /menu [category]   list categories or the items in one
  /add <id> [qty]    add an item to the cart
  /remove <id>       remove an item
  /cart              show the cart
  /checkout          start checkout
  /cancel            cancel checkout
  /pay               pay for a wallet checkout
  /image <path>      ask about a photo
  /retry             retry the last failed answer
  /quit              leave`

// runChat drives one session from line input until EOF or /quit.
func runChat(ctx context.Context, sess *session.Session, holder *catalog.Holder, in io.Reader, out io.Writer) error {
	for _, v := range sess.Snapshot().Turns {
		printTurn(out, v)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, "/") {
			views, err := sess.Send(ctx, line)
			printResult(out, views, err)
			continue
		}

		cmd, arg, _ := strings.Cut(line[1:], " ")
		arg = strings.TrimSpace(arg)
		switch cmd {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(out, chatHelp)
		case "menu":
			printMenu(out, holder, arg)
		case "add":
			id, qty, err := parseItemArgs(arg)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			var summary session.CartSummary
			if qty > 0 {
				summary, err = sess.SetCartQuantity(ctx, id, qty)
			} else {
				summary, err = sess.AddToCart(ctx, id)
			}
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			printCart(out, summary)
		case "remove":
			id, _, err := parseItemArgs(arg)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			summary, err := sess.RemoveFromCart(ctx, id)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			printCart(out, summary)
		case "cart":
			printCart(out, sess.Cart())
		case "checkout":
			views, err := sess.BeginCheckout(ctx)
			printResult(out, views, err)
		case "cancel":
			views, err := sess.Cancel(ctx)
			printResult(out, views, err)
		case "pay":
			views, err := sess.Pay(ctx)
			printResult(out, views, err)
		case "retry":
			views, err := sess.Retry(ctx)
			printResult(out, views, err)
		case "image":
			data, err := os.ReadFile(arg)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			views, err := sess.SendImage(ctx, data, "")
			printResult(out, views, err)
		default:
			fmt.Fprintf(out, "unknown command /%s (try /help)\n", cmd)
		}
	}
}

func parseItemArgs(arg string) (id int64, qty int, err error) {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return 0, 0, errors.New("usage: <id> [qty]")
	}
	id, err = strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid item id %q", fields[0])
	}
	if len(fields) > 1 {
		qty, err = strconv.Atoi(fields[1])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid quantity %q", fields[1])
		}
	}
	return id, qty, nil
}

func printResult(out io.Writer, views []conversation.View, err error) {
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	for _, v := range views {
		if v.From == conversation.FromAssistant {
			printTurn(out, v)
		}
	}
}

func printTurn(out io.Writer, v conversation.View) {
	if v.From == conversation.FromUser {
		fmt.Fprintln(out, "you:", v.Text)
		return
	}
	text := v.Text
	if v.Recommendation != nil {
		text = assistant.Summary(v.Recommendation, v.Items)
	}
	fmt.Fprintln(out, "bot:", text)
	if v.Retryable {
		fmt.Fprintln(out, "     (type /retry to try again)")
	}
}

func printMenu(out io.Writer, holder *catalog.Holder, category string) {
	idx := holder.Current()
	if idx == nil {
		fmt.Fprintln(out, "menu not loaded")
		return
	}
	if category == "" {
		fmt.Fprintln(out, "categories:", strings.Join(idx.Categories(), ", "))
		return
	}
	entries := idx.ByCategory(category)
	if len(entries) == 0 {
		fmt.Fprintf(out, "no items in %q\n", category)
		return
	}
	for _, e := range entries {
		fmt.Fprintf(out, "  [%d] %s  %s\n", e.ID, e.Name, e.Price.StringFixed(2))
	}
}

func printCart(out io.Writer, c session.CartSummary) {
	if len(c.Lines) == 0 {
		fmt.Fprintln(out, "cart is empty")
		return
	}
	for _, l := range c.Lines {
		fmt.Fprintf(out, "  %d x %s  %s\n", l.Quantity, l.Name, l.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(out, "  total (%d items): %s\n", c.Items, c.Display)
}
