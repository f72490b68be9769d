package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wellcome-app/wizard"
	"github.com/wellcome-app/wizard/catalog"
)

var (
	errBack = errors.New("back")
	errQuit = errors.New("quit")
)

var dateLayouts = []string{"02/01/2006", "2006-01-02"}

// create: interactive rendition of the four wizard screens.
func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a meal event step by step",
		Long: `Walk through the event type, menu, location and details steps.
At any prompt type "<" to go back one step or "q" to abandon.
Leaving a prompt empty keeps the current value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := appCtx.Submitter()
			if err != nil {
				return err
			}

			store, err := wizard.NewStore(sub, appCtx.options()...)
			if err != nil {
				return err
			}
			flow, err := wizard.NewFlow(store, appCtx.options()...)
			if err != nil {
				return err
			}

			c := &creator{
				flow:    flow,
				catalog: appCtx.catalog,
				in:      bufio.NewScanner(cmd.InOrStdin()),
				out:     cmd.OutOrStdout(),
				timeout: appCtx.cfg.SubmitTimeout,
			}
			return c.run(cmd.Context())
		},
	}
}

type creator struct {
	flow    *wizard.Flow
	catalog *catalog.Catalog
	in      *bufio.Scanner
	out     io.Writer
	timeout time.Duration
}

func (c *creator) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// ask prints label and returns the trimmed answer.
func (c *creator) ask(label string) (string, error) {
	c.printf("%s: ", label)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	v := strings.TrimSpace(c.in.Text())
	switch v {
	case "<":
		return "", errBack
	case "q", "Q":
		return "", errQuit
	}
	return v, nil
}

func (c *creator) askBool(label string, cur bool) (bool, error) {
	def := "n"
	if cur {
		def = "s"
	}
	v, err := c.ask(fmt.Sprintf("%s (s/n) [%s]", label, def))
	if err != nil || v == "" {
		return cur, err
	}
	switch strings.ToLower(v) {
	case "s", "sim", "y", "yes":
		return true, nil
	case "n", "não", "nao", "no":
		return false, nil
	}
	c.printf("Resposta inválida, mantendo %q.\n", def)
	return cur, nil
}

func (c *creator) list(items []string, selected []string) {
	for i, it := range items {
		mark := " "
		if contains(selected, it) {
			mark = "x"
		}
		c.printf("  [%s] %2d) %s\n", mark, i+1, it)
	}
}

func (c *creator) header() {
	c.printf("\n")
	for _, p := range c.flow.Progress() {
		mark := " "
		switch {
		case p.Current:
			mark = ">"
		case p.Completed:
			mark = "x"
		}
		c.printf("[%s] %s  ", mark, p.Label)
	}
	c.printf("\n\n")
}

func (c *creator) run(ctx context.Context) error {
	for {
		var err error
		switch c.flow.State() {
		case wizard.StateEventType:
			err = c.eventType()
		case wizard.StateMenu:
			err = c.menu()
		case wizard.StateLocation:
			err = c.location()
		case wizard.StateDetails:
			err = c.details()
		case wizard.StateCompleted, wizard.StateAbandoned:
			return nil
		default:
			return fmt.Errorf("unexpected state %s", c.flow.State())
		}

		switch {
		case errors.Is(err, errBack):
			if !c.flow.Back() {
				c.printf("Criação de evento cancelada.\n")
			}
			continue
		case errors.Is(err, errQuit):
			if err := c.flow.Abandon(); err != nil {
				return err
			}
			c.printf("Criação de evento cancelada.\n")
			continue
		case err != nil:
			return err
		}

		if c.flow.State() == wizard.StateDetails {
			c.submit(ctx)
			continue
		}
		c.next()
	}
}

func (c *creator) next() {
	err := c.flow.Next()
	var verr *wizard.ValidationError
	if errors.As(err, &verr) {
		c.printf("\n%s\n", verr.Message)
	}
}

func (c *creator) submit(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.printf("\nCriando evento...\n")
	eventID, err := c.flow.Submit(ctx)

	var verr *wizard.ValidationError
	var serr *wizard.SubmissionError
	switch {
	case err == nil:
		c.printf("Evento criado com sucesso! (%s)\n", eventID)
	case errors.As(err, &verr):
		c.printf("\n%s\n", verr.Message)
	case errors.As(err, &serr):
		c.printf("Não foi possível criar o evento. Tente novamente. (%s)\n", serr.Err)
	default:
		c.printf("Erro: %s\n", err)
	}
}

func (c *creator) eventType() error {
	store := c.flow.Store()
	data := store.Data()

	c.header()
	c.printf("Qual tipo de evento você quer oferecer?\n")
	c.list(c.catalog.EventTypes, []string{data.EventType})
	v, err := c.ask("Tipo de evento (número)")
	if err != nil {
		return err
	}
	if v != "" {
		idx, err := parseIndexes(v, len(c.catalog.EventTypes))
		if err != nil || len(idx) != 1 {
			c.printf("Opção inválida.\n")
		} else if err := store.SetEventType(c.catalog.EventTypes[idx[0]]); err != nil {
			return err
		}
	}

	c.printf("\nTipos de culinária\n")
	c.list(c.catalog.Cuisines, data.CuisineTypes)
	if err := c.toggleMany("Culinárias (números separados por vírgula)", c.catalog.Cuisines, store.ToggleCuisineType); err != nil {
		return err
	}

	seq, err := c.askBool("O cardápio será servido em etapas?", data.IsServedInSequence)
	if err != nil {
		return err
	}
	return store.SetServedInSequence(seq)
}

func (c *creator) toggleMany(label string, items []string, toggle func(string) error) error {
	v, err := c.ask(label)
	if err != nil || v == "" {
		return err
	}
	idx, err := parseIndexes(v, len(items))
	if err != nil {
		c.printf("Opção inválida.\n")
		return nil
	}
	for _, i := range idx {
		if err := toggle(items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *creator) menu() error {
	store := c.flow.Store()

	for {
		data := store.Data()

		c.header()
		c.printf("Cardápio\n")
		if len(data.Dishes) == 0 {
			c.printf("  (nenhum prato)\n")
		}
		for i, d := range data.Dishes {
			c.printf("  %2d) %s", i+1, d.Name)
			if d.Description != "" {
				c.printf(" - %s", d.Description)
			}
			c.printf("\n")
		}

		v, err := c.ask("[a]dicionar, [e]ditar N, [r]emover N, [c]ontinuar")
		if err != nil {
			return err
		}

		cmd, arg, _ := strings.Cut(v, " ")
		cmd = strings.ToLower(cmd)
		switch cmd {
		case "a":
			d, err := c.flow.NewDish()
			if err != nil {
				return err
			}
			if err := c.editDish(d); err != nil {
				return err
			}
		case "e", "r":
			idx, err := parseIndexes(arg, len(data.Dishes))
			if err != nil || len(idx) != 1 {
				c.printf("Informe o número do prato.\n")
				continue
			}
			d := data.Dishes[idx[0]]
			if cmd == "r" {
				if err := store.RemoveDish(d.ID); err != nil {
					return err
				}
				continue
			}
			if err := c.editDish(d); err != nil {
				return err
			}
		case "c", "":
			return nil
		default:
			c.printf("Opção inválida.\n")
		}
	}
}

func (c *creator) editDish(d wizard.Dish) error {
	var p wizard.DishPatch

	name, err := c.ask(fmt.Sprintf("Nome do prato [%s]", d.Name))
	if err != nil {
		return err
	}
	if name != "" {
		p.Name = wizard.String(name)
	}

	desc, err := c.ask(fmt.Sprintf("Descrição [%s]", d.Description))
	if err != nil {
		return err
	}
	if desc != "" {
		p.Description = wizard.String(desc)
	}

	return c.flow.Store().UpdateDish(d.ID, p)
}

func (c *creator) location() error {
	store := c.flow.Store()
	data := store.Data()

	c.header()
	addr, err := c.ask(fmt.Sprintf("Endereço [%s]", data.Location.Address))
	if err != nil {
		return err
	}
	if addr != "" {
		if err := store.UpdateLocation(wizard.LocationPatch{Address: wizard.String(addr)}); err != nil {
			return err
		}
	}

	c.printf("\nComodidades\n")
	c.list(c.catalog.Facilities, data.Location.Facilities)
	if err := c.toggleMany("Comodidades (números separados por vírgula)", c.catalog.Facilities, store.ToggleFacility); err != nil {
		return err
	}

	c.printf("\nRegras da casa\n")
	c.list(c.catalog.Rules, data.Location.Rules)
	return c.toggleMany("Regras (números separados por vírgula)", c.catalog.Rules, store.ToggleRule)
}

func (c *creator) details() error {
	store := c.flow.Store()
	d := store.Data().Details

	c.header()

	var p wizard.DetailsPatch
	text := func(label, cur string, dst **string) error {
		v, err := c.ask(fmt.Sprintf("%s [%s]", label, cur))
		if err != nil {
			return err
		}
		if v != "" {
			*dst = wizard.String(v)
		}
		return nil
	}
	date := func(label string, cur *time.Time, dst **time.Time) error {
		var shown string
		if cur != nil {
			shown = cur.Format(dateLayouts[0])
		}
		for {
			v, err := c.ask(fmt.Sprintf("%s (dd/mm/aaaa) [%s]", label, shown))
			if err != nil || v == "" {
				return err
			}
			t, err := parseDate(v)
			if err == nil {
				*dst = &t
				return nil
			}
			c.printf("Data inválida.\n")
		}
	}

	if err := text("Valor por convidado (R$)", d.PricePerGuest, &p.PricePerGuest); err != nil {
		return err
	}
	if err := text("Máximo de convidados", d.MaxGuests, &p.MaxGuests); err != nil {
		return err
	}
	if err := date("Data do evento", d.Date, &p.Date); err != nil {
		return err
	}
	if err := date("Prazo de inscrição", d.RegistrationDeadline, &p.RegistrationDeadline); err != nil {
		return err
	}
	if err := text("Título (opcional)", d.Title, &p.Title); err != nil {
		return err
	}
	if err := text("Descrição (opcional)", d.Description, &p.Description); err != nil {
		return err
	}
	if err := store.UpdateDetails(p); err != nil {
		return err
	}

	data := store.Data()
	flags := []struct {
		label string
		cur   bool
		set   func(bool) error
	}{
		{"Opções veganas?", data.VeganOptions, store.SetVeganOptions},
		{"Aceita substituições?", data.Substitutions, store.SetSubstitutions},
		{"Permite alterações no cardápio?", data.MenuAlterations, store.SetMenuAlterations},
	}
	for _, f := range flags {
		v, err := c.askBool(f.label, f.cur)
		if err != nil {
			return err
		}
		if err := f.set(v); err != nil {
			return err
		}
	}
	return nil
}

// parseIndexes parses a comma separated list of 1-based positions into
// 0-based indexes below n.
func parseIndexes(s string, n int) ([]int, error) {
	var out []int
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		i, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		if i < 1 || i > n {
			return nil, fmt.Errorf("%d out of range", i)
		}
		out = append(out, i-1)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no option in %q", s)
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		t, err = time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
