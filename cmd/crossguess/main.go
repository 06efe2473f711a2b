// Command crossguess joins a round on a CrossGuess server from the terminal
// and follows it until the answer is revealed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/shopspring/decimal"

	"github.com/moonshotcommons/cross-guess-game/internal/game"
	"github.com/moonshotcommons/cross-guess-game/internal/server"
)

func main() {
	apiFlag := flag.String("api", "http://localhost:3001", "game server base URL")
	modeFlag := flag.String("mode", server.ModeDemo, "game mode: demo or real")
	guessFlag := flag.Int("guess", 0, "your guess; prompts when omitted")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.New(pterm.NewSlogHandler(&pterm.DefaultLogger))

	if err := play(ctx, logger, NewClient(*apiFlag, *modeFlag), *modeFlag, *guessFlag); err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(1)
	}
}

func play(ctx context.Context, logger *slog.Logger, c *Client, mode string, guess int) error {
	title, err := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("Cross", pterm.FgCyan.ToStyle()),
		putils.LettersFromStringWithStyle("Guess", pterm.FgDarkGray.ToStyle()),
	).Srender()
	if err != nil {
		logger.Warn("rendering title", "error", err)
	}
	pterm.Print(title)

	status, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("fetching status: %w", err)
	}
	renderStatus(status)

	if mode == server.ModeReal {
		info, err := c.WalletInfo(ctx)
		if err != nil {
			return fmt.Errorf("fetching wallet info: %w", err)
		}
		if !info.HasWallet {
			return errors.New(info.Message)
		}
		pterm.Info.Printfln("Playing with wallet %s", *info.Address)
	}

	if !status.CanJoin {
		pterm.Warning.Println("The current round is full, your join will likely be refused")
	}

	if guess == 0 {
		guess, err = promptGuess(status.GuessMax)
		if err != nil {
			return err
		}
	}

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Staking %s and submitting guess %d ...", status.Stake, guess))
	joined, err := c.Join(ctx, guess)
	if err != nil {
		spinner.Fail(err.Error())
		return errors.New("join refused")
	}
	spinner.Success(joined.Message)
	logger.Info("joined", "round", joined.GameID, "player", joined.PlayerAddress, "tx", joined.TxHash)

	area, _ := pterm.DefaultArea.Start()
	out, err := watch(ctx, c, joined.GameID, time.Second, func(st server.StatusResponse) {
		area.Update(progress(st))
	})
	area.Stop()
	if err != nil {
		return fmt.Errorf("following round: %w", err)
	}

	renderOutcome(out, joined.PlayerAddress)
	return nil
}

func promptGuess(guessMax int) (int, error) {
	options := make([]string, 0, guessMax)
	for i := 1; i <= guessMax; i++ {
		options = append(options, strconv.Itoa(i))
	}
	selected, err := pterm.DefaultInteractiveSelect.
		WithDefaultText("Pick your number").
		WithOptions(options).
		Show()
	if err != nil {
		return 0, fmt.Errorf("reading guess: %w", err)
	}
	return strconv.Atoi(selected)
}

func renderStatus(st server.StatusResponse) {
	rows := pterm.TableData{
		{"Mode", st.Mode},
		{"Stake", st.Stake.String()},
		{"Guess range", fmt.Sprintf("1 - %d", st.GuessMax)},
	}
	if st.Game == nil {
		rows = append(rows, []string{"Round", "none yet, you will open one"})
	} else {
		rows = append(rows,
			[]string{"Round", string(st.Game.Status)},
			[]string{"Players", fmt.Sprintf("%d / %d", len(st.Game.Participants), st.Game.MaxParticipants)},
			[]string{"Prize pool", st.Game.PrizePool.String()},
		)
	}
	_ = pterm.DefaultTable.WithData(rows).Render()
}

func progress(st server.StatusResponse) string {
	if st.Game == nil {
		return "Waiting for the round ..."
	}
	return pterm.Sprintfln("%s  %ds left  %d/%d players  pool %s",
		pterm.LightCyan(st.Game.Status), st.TimeRemaining,
		len(st.Game.Participants), st.Game.MaxParticipants, st.Game.PrizePool)
}

// outcome is how a round the player took part in ended.
type outcome struct {
	RoundID       string
	CorrectAnswer int
	Winner        string
	Prize         decimal.Decimal
	Participants  int
}

var errRoundReplaced = errors.New("round was replaced before its result could be read")

// watch polls the status every interval until roundID has ended.
func watch(ctx context.Context, c *Client, roundID string, interval time.Duration, tick func(server.StatusResponse)) (outcome, error) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		st, err := c.Status(ctx)
		if err != nil {
			return outcome{}, err
		}
		if tick != nil {
			tick(st)
		}

		switch {
		case st.Game == nil:
		case st.Game.ID != roundID:
			return outcome{}, errRoundReplaced
		case st.Game.Status == game.StatusEnded:
			out := outcome{
				RoundID:      roundID,
				Prize:        st.Game.Prize,
				Participants: len(st.Game.Participants),
			}
			if st.Game.CorrectAnswer != nil {
				out.CorrectAnswer = *st.Game.CorrectAnswer
			}
			if st.Game.Winner != nil {
				out.Winner = st.Game.Winner.Address
			}
			return out, nil
		}

		select {
		case <-ctx.Done():
			return outcome{}, ctx.Err()
		case <-t.C:
		}
	}
}

func renderOutcome(out outcome, player string) {
	pterm.Println()
	pterm.Info.Printfln("The number was %d (%d players)", out.CorrectAnswer, out.Participants)
	switch {
	case out.Winner == "":
		pterm.Warning.Println("Nobody guessed it, the pool is unclaimed")
	case strings.EqualFold(out.Winner, player):
		pterm.Success.Printfln("You won %s!", out.Prize)
	default:
		pterm.Error.Printfln("%s won %s, better luck next time", out.Winner, out.Prize)
	}
}
