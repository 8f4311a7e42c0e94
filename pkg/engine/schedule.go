package engine

import (
	"fmt"
	"time"

	"github.com/cuemby/pacemaker-scheduler/pkg/actions"
	"github.com/cuemby/pacemaker-scheduler/pkg/cib"
	"github.com/cuemby/pacemaker-scheduler/pkg/constraints"
	"github.com/cuemby/pacemaker-scheduler/pkg/graph"
	"github.com/cuemby/pacemaker-scheduler/pkg/log"
	"github.com/cuemby/pacemaker-scheduler/pkg/notify"
	"github.com/cuemby/pacemaker-scheduler/pkg/ordering"
	"github.com/cuemby/pacemaker-scheduler/pkg/placement"
	"github.com/cuemby/pacemaker-scheduler/pkg/types"
)

// Result is everything one scheduling pass produces.
type Result struct {
	TransitionGraph []byte
	NextRecheck     time.Time
	Diagnostics     []types.Diagnostic
}

// Schedule runs one full scheduling pass: parse, unpack constraints,
// place, build actions, notify, order, prune, and emit. It never mutates
// configXML/statusXML and never returns different output for the same
// three inputs.
func Schedule(configXML, statusXML []byte, now time.Time) (*Result, error) {
	logger := log.WithComponent("engine")

	cfg, err := cib.ParseConfiguration(configXML)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	status, err := cib.ParseStatus(statusXML)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	built := cib.Build(cfg, status, now)
	ws := built.WorkingSet

	constraints.Unpack(ws, built.Constraints)
	placement.Allocate(ws)
	actions.Build(ws)
	notify.Build(ws)

	if ok := ordering.Build(ws); !ok {
		logger.Error().Msg("ordering constraints form a cycle, aborting transition graph")
		return &Result{Diagnostics: ws.Diagnostics}, fmt.Errorf("engine: ordering cycle detected, no transition graph produced")
	}

	graph.Prune(ws)

	ws.UpdateNextRecheck(now.Add(ws.Options.ClusterRecheckInterval))

	out, err := cib.Emit(ws)
	if err != nil {
		return nil, fmt.Errorf("engine: emit transition graph: %w", err)
	}

	recheck := now
	if ws.NextRecheck != nil {
		recheck = *ws.NextRecheck
	}

	logger.Info().
		Int("actions", len(ws.Actions)).
		Int("diagnostics", len(ws.Diagnostics)).
		Time("next_recheck", recheck).
		Msg("scheduling pass complete")

	return &Result{
		TransitionGraph: out,
		NextRecheck:     recheck,
		Diagnostics:     ws.Diagnostics,
	}, nil
}
