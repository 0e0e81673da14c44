package sui

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mmuslimabdulj/hero-arena/internal/domain"
	"github.com/mmuslimabdulj/hero-arena/internal/identity"
	"github.com/mmuslimabdulj/hero-arena/internal/ledger"
)

// ownedPageSize is the page size requested from suix_getOwnedObjects.
const ownedPageSize = 50

// ErrExecutionFailed marks a transaction the chain executed with a failure status.
var ErrExecutionFailed = errors.New("sui: transaction failed")

// Signer signs transaction bytes for an address.
type Signer interface {
	Sign(address string, txBytes []byte) (string, error)
}

// Config describes the deployed game package.
type Config struct {
	PackageID string
	Module    string
	GasBudget uint64
}

// Ledger is the game ledger on a Sui network.
type Ledger struct {
	client    *Client
	signer    Signer
	packageID string
	module    string
	gasBudget uint64
	heroType  string
	log       *zap.Logger
	reads     singleflight.Group
}

var _ ledger.Ledger = (*Ledger)(nil)

// New creates a Ledger. Submissions fail when signer is nil.
func New(client *Client, signer Signer, cfg Config, log *zap.Logger) (*Ledger, error) {
	pkg, err := identity.NormalizeAddress(cfg.PackageID)
	if err != nil {
		return nil, fmt.Errorf("package id: %w", err)
	}
	if cfg.Module == "" {
		cfg.Module = "game"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		client:    client,
		signer:    signer,
		packageID: pkg,
		module:    cfg.Module,
		gasBudget: cfg.GasBudget,
		heroType:  pkg + "::" + cfg.Module + "::Hero",
		log:       log.With(zap.String("package", pkg)),
	}, nil
}

// HeroType is the fully qualified Move type of hero objects.
func (l *Ledger) HeroType() string {
	return l.heroType
}

// Hero reads a hero object. Concurrent reads of the same id share one request.
func (l *Ledger) Hero(ctx context.Context, id string) (domain.HeroRecord, error) {
	v, err, _ := l.reads.Do(id, func() (any, error) {
		var resp objectResponse
		params := []any{id, heroObjectOptions}
		if err := l.client.Call(ctx, "sui_getObject", params, &resp); err != nil {
			return nil, err
		}
		if resp.Error != nil || resp.Data == nil || !l.isHeroType(resp.Data.objectType()) {
			return nil, ledger.ErrNotFound
		}
		return resp.Data.record(), nil
	})
	if err != nil {
		return domain.HeroRecord{}, err
	}
	return v.(domain.HeroRecord), nil
}

// isHeroType compares a Move type to the hero type, tolerating short
// package addresses such as 0x2a.
func (l *Ledger) isHeroType(typ string) bool {
	pkg, rest, ok := strings.Cut(typ, "::")
	if !ok {
		return false
	}
	norm, err := identity.NormalizeAddress(pkg)
	if err != nil {
		return false
	}
	return norm+"::"+rest == l.heroType
}

// OwnedHeroes lists the hero objects held by owner in node order.
func (l *Ledger) OwnedHeroes(ctx context.Context, owner string) ([]domain.HeroRecord, error) {
	query := ownedObjectsQuery{
		Filter:  map[string]string{"StructType": l.heroType},
		Options: heroObjectOptions,
	}

	var (
		heroes []domain.HeroRecord
		cursor *string
	)
	for {
		var page ownedObjectsPage
		params := []any{owner, query, cursor, ownedPageSize}
		if err := l.client.Call(ctx, "suix_getOwnedObjects", params, &page); err != nil {
			return nil, err
		}
		for _, obj := range page.Data {
			if obj.Data != nil {
				heroes = append(heroes, obj.Data.record())
			}
		}
		if !page.HasNextPage || page.NextCursor == nil {
			return heroes, nil
		}
		cursor = page.NextCursor
	}
}

type transactionBytes struct {
	TxBytes string `json:"txBytes"`
}

type executionOptions struct {
	ShowEffects       bool `json:"showEffects"`
	ShowObjectChanges bool `json:"showObjectChanges"`
}

type executionResponse struct {
	Digest  string `json:"digest"`
	Effects *struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
	} `json:"effects"`
	ObjectChanges []objectChange `json:"objectChanges"`
}

type objectChange struct {
	Type       string `json:"type"`
	ObjectType string `json:"objectType"`
	ObjectID   string `json:"objectId"`
}

// Submit builds, signs and executes a Move call.
func (l *Ledger) Submit(ctx context.Context, call ledger.Call) (ledger.Receipt, error) {
	if l.signer == nil {
		return ledger.Receipt{}, errors.New("sui: no signer configured")
	}

	args, err := moveArguments(call)
	if err != nil {
		return ledger.Receipt{}, err
	}

	var tx transactionBytes
	params := []any{
		call.Sender,
		l.packageID,
		l.module,
		string(call.Action),
		[]any{},
		args,
		nil,
		strconv.FormatUint(l.gasBudget, 10),
	}
	if err := l.client.Call(ctx, "unsafe_moveCall", params, &tx); err != nil {
		return ledger.Receipt{}, fmt.Errorf("build %s: %w", call.Action, err)
	}

	raw, err := base64.StdEncoding.DecodeString(tx.TxBytes)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("decode %s tx bytes: %w", call.Action, err)
	}
	sig, err := l.signer.Sign(call.Sender, raw)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("sign %s: %w", call.Action, err)
	}

	var res executionResponse
	params = []any{
		tx.TxBytes,
		[]string{sig},
		executionOptions{ShowEffects: true, ShowObjectChanges: true},
		"WaitForLocalExecution",
	}
	if err := l.client.Call(ctx, "sui_executeTransactionBlock", params, &res); err != nil {
		return ledger.Receipt{}, fmt.Errorf("execute %s: %w", call.Action, err)
	}
	if res.Effects != nil && res.Effects.Status.Status != "success" {
		return ledger.Receipt{Digest: res.Digest}, fmt.Errorf("%w: %s", ErrExecutionFailed, res.Effects.Status.Error)
	}

	receipt := ledger.Receipt{Digest: res.Digest}
	for _, ch := range res.ObjectChanges {
		if ch.Type == "created" && ch.ObjectType == l.heroType {
			receipt.HeroID = ch.ObjectID
			break
		}
	}
	l.log.Info("transaction executed",
		zap.String("action", string(call.Action)),
		zap.String("digest", receipt.Digest),
		zap.String("created", receipt.HeroID))
	return receipt, nil
}

// moveArguments renders call arguments as SuiJson values.
func moveArguments(call ledger.Call) ([]any, error) {
	switch call.Action {
	case ledger.ActionCreateHero:
		name := []byte(call.Name)
		vec := make([]int, len(name))
		for i, b := range name {
			vec[i] = int(b)
		}
		return []any{vec}, nil
	case ledger.ActionBattle, ledger.ActionHeal:
		if call.HeroID == "" {
			return nil, errors.New("sui: hero id required")
		}
		return []any{call.HeroID}, nil
	default:
		return nil, fmt.Errorf("sui: unknown action %q", call.Action)
	}
}
