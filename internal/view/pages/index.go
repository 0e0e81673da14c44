// Package pages holds the templ components served by the HTTP handlers.
package pages

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/mmuslimabdulj/hero-arena/internal/view/viewmodel"
)

// Index renders the full game page.
func Index(p viewmodel.IndexPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := p.Title
		if title == "" {
			title = "Hero Arena"
		}
		ew := &errWriter{w: w}
		ew.printf(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		ew.printf(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		ew.printf(`<title>%s</title>`, templ.EscapeString(title))
		ew.printf(`<link rel="stylesheet" href="/static/app.css"></head>`)
		ew.printf(`<body data-ws-path="%s" data-state="%s">`, templ.EscapeString(p.WSPath), templ.EscapeString(p.State))
		ew.printf(`<main class="arena"><h1>%s</h1>`, templ.EscapeString(title))
		ew.printf(`<div id="notices" class="notices" aria-live="polite"></div>`)
		if ew.err != nil {
			return ew.err
		}

		if err := WalletPanel(p).Render(ctx, w); err != nil {
			return err
		}
		if err := CreateForm(p).Render(ctx, w); err != nil {
			return err
		}
		if err := HeroPanel(p.Hero).Render(ctx, w); err != nil {
			return err
		}

		ew.printf(`<section id="activity" class="activity"><h2>Recent activity</h2><ul></ul></section>`)
		ew.printf(`</main>`)
		if err := Footer(p.LedgerMode, p.PackageID).Render(ctx, w); err != nil {
			return err
		}
		ew.printf(`<script src="/static/app.js" defer></script></body></html>`)
		return ew.err
	})
}

// WalletPanel renders the identity connect controls.
func WalletPanel(p viewmodel.IndexPage) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		connected := p.Address != ""
		ew.printf(`<section id="wallet" class="wallet">`)
		ew.printf(`<p class="wallet-status">%s</p>`, templ.EscapeString(walletStatus(p.Address)))
		ew.printf(`<form id="connect-form"%s>`, hiddenIf(connected))
		if p.FreeformLogin {
			ew.printf(`<input name="address" list="accounts" placeholder="0x..." autocomplete="off" required>`)
			ew.printf(`<datalist id="accounts">`)
			for _, a := range p.Accounts {
				ew.printf(`<option value="%s"></option>`, templ.EscapeString(a))
			}
			ew.printf(`</datalist>`)
		} else {
			ew.printf(`<select name="address" required>`)
			for _, a := range p.Accounts {
				ew.printf(`<option value="%s">%s</option>`, templ.EscapeString(a), templ.EscapeString(shortAddress(a)))
			}
			ew.printf(`</select>`)
		}
		ew.printf(`<button type="submit">Connect wallet</button></form>`)
		ew.printf(`<button id="disconnect" type="button"%s>Disconnect</button>`, hiddenIf(!connected))
		ew.printf(`</section>`)
		return ew.err
	})
}

// CreateForm renders the hero creation form. It is shown once an identity
// owns no hero.
func CreateForm(p viewmodel.IndexPage) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<section id="create" class="create"%s>`, hiddenIf(p.State != "empty"))
		ew.printf(`<h2>Create your hero</h2><form id="create-form">`)
		ew.printf(`<input name="name" maxlength="%d" placeholder="%s">`,
			p.NameMaxLength, templ.EscapeString(p.SuggestedName))
		ew.printf(`<button type="button" id="suggest">Suggest</button>`)
		ew.printf(`<button type="submit">Create hero</button>`)
		ew.printf(`</form></section>`)
		return ew.err
	})
}

// HeroPanel renders the hero card and its actions, or an empty mount point
// when there is no hero.
func HeroPanel(h *viewmodel.HeroCard) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		if h == nil {
			ew.printf(`<section id="hero" class="hero" hidden></section>`)
			return ew.err
		}
		ew.printf(`<section id="hero" class="hero" style="--crest: %s">`, templ.EscapeString(h.Crest))
		ew.printf(`<h2 class="hero-name">%s</h2>`, templ.EscapeString(h.Name))
		ew.printf(`<p class="hero-level">Level %d</p>`, h.Level)
		if h.Provisional {
			ew.printf(`<p class="hero-id provisional">Awaiting confirmation</p>`)
		} else {
			ew.printf(`<p class="hero-id">%s</p>`, templ.EscapeString(shortAddress(h.ID)))
		}
		bar(ew, "hp", "HP", h.HP, h.MaxHP, h.HPPercent())
		bar(ew, "xp", "XP", h.XP, h.XPPerLevel, h.XPPercent())
		if h.Defeated {
			ew.printf(`<p class="defeated">Your hero has been defeated. Heal to fight again.</p>`)
		}
		ew.printf(`<div class="actions">`)
		ew.printf(`<button id="battle" type="button"%s>Battle</button>`, disabledIf(!h.CanBattle))
		ew.printf(`<button id="heal" type="button">Heal</button>`)
		ew.printf(`<button id="discard" type="button">New hero</button>`)
		ew.printf(`</div></section>`)
		return ew.err
	})
}

// Footer renders the ledger details.
func Footer(mode, packageID string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<footer class="footer"><span>Ledger: %s</span>`, templ.EscapeString(mode))
		if packageID != "" {
			ew.printf(` <span>Package: <code>%s</code></span>`, templ.EscapeString(packageID))
		}
		ew.printf(`</footer>`)
		return ew.err
	})
}

func bar(ew *errWriter, class, label string, value, max, pct int) {
	ew.printf(`<div class="bar bar-%s"><span class="bar-label">%s %s/%s</span>`,
		class, label, strconv.Itoa(value), strconv.Itoa(max))
	ew.printf(`<div class="bar-track"><div class="bar-fill" style="width: %d%%"></div></div></div>`, pct)
}

func walletStatus(address string) string {
	if address == "" {
		return "No wallet connected"
	}
	return "Connected as " + shortAddress(address)
}

func shortAddress(a string) string {
	if len(a) <= 14 {
		return a
	}
	return a[:8] + "…" + a[len(a)-4:]
}

func hiddenIf(b bool) string {
	if b {
		return " hidden"
	}
	return ""
}

func disabledIf(b bool) string {
	if b {
		return " disabled"
	}
	return ""
}

// errWriter keeps the first write error so components can write
// unconditionally and check once.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	if len(args) == 0 {
		_, e.err = io.WriteString(e.w, format)
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
