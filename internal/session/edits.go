package session

import (
	"fmt"
	"strings"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/aristath/sentinel-desk/internal/regime"
)

// edit applies fn to the field's draft as a user edit and schedules the
// commit for the live session. Edits that arrive before the session has been
// loaded fail with ErrDraftNotLoaded.
func edit[T any](o *Orchestrator, f *field[T], fn func(T) (T, error)) error {
	id, _, err := o.current()
	if err != nil {
		return err
	}
	if _, err := f.draft.Update(fn); err != nil {
		return err
	}
	f.saver.Schedule(id)
	return nil
}

// EditPortfolio replaces the whole portfolio.
func (o *Orchestrator) EditPortfolio(p domain.Portfolio) error {
	if err := domain.ValidatePortfolio(p); err != nil {
		return err
	}
	err := edit(o, o.portfolio, func(domain.Portfolio) (domain.Portfolio, error) {
		return p.Clone(), nil
	})
	if err != nil {
		return err
	}
	o.updateWeightsWarning()
	return nil
}

// AddAsset appends an asset. Duplicate ids are rejected.
func (o *Orchestrator) AddAsset(a domain.Asset) error {
	if err := domain.ValidateAsset(a); err != nil {
		return err
	}
	err := edit(o, o.portfolio, func(p domain.Portfolio) (domain.Portfolio, error) {
		if p.IndexOf(a.ID) >= 0 {
			return p, &domain.ValidationError{Field: "id", Value: a.ID, Reason: "duplicate asset id"}
		}
		out := p.Clone()
		out.Assets = append(out.Assets, a)
		return out, nil
	})
	if err != nil {
		return err
	}
	o.updateWeightsWarning()
	return nil
}

// UpdateAsset replaces the asset with the same id.
func (o *Orchestrator) UpdateAsset(a domain.Asset) error {
	if err := domain.ValidateAsset(a); err != nil {
		return err
	}
	err := edit(o, o.portfolio, func(p domain.Portfolio) (domain.Portfolio, error) {
		i := p.IndexOf(a.ID)
		if i < 0 {
			return p, fmt.Errorf("%w: %s", ErrAssetNotFound, a.ID)
		}
		out := p.Clone()
		out.Assets[i] = a
		return out, nil
	})
	if err != nil {
		return err
	}
	o.updateWeightsWarning()
	return nil
}

// RemoveAsset deletes the asset with the given id.
func (o *Orchestrator) RemoveAsset(id string) error {
	err := edit(o, o.portfolio, func(p domain.Portfolio) (domain.Portfolio, error) {
		i := p.IndexOf(id)
		if i < 0 {
			return p, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
		}
		out := p.Clone()
		out.Assets = append(out.Assets[:i], out.Assets[i+1:]...)
		return out, nil
	})
	if err != nil {
		return err
	}
	o.updateWeightsWarning()
	return nil
}

// EditConstraints replaces the allocation bounds.
func (o *Orchestrator) EditConstraints(c domain.Constraints) error {
	if err := domain.ValidateConstraints(c); err != nil {
		return err
	}
	return edit(o, o.constraints, func(domain.Constraints) (domain.Constraints, error) {
		return c.Clone(), nil
	})
}

// EditInflow replaces the pending inflow.
func (o *Orchestrator) EditInflow(in domain.Inflow) error {
	if err := domain.ValidateInflow(in); err != nil {
		return err
	}
	in.Currency = domain.Currency(strings.ToUpper(string(in.Currency)))
	return edit(o, o.inflow, func(domain.Inflow) (domain.Inflow, error) {
		return in, nil
	})
}

// SetRiskPosture changes the risk posture.
func (o *Orchestrator) SetRiskPosture(rp domain.RiskPosture) error {
	if err := domain.ValidateRiskPosture(rp); err != nil {
		return err
	}
	return edit(o, o.riskPosture, func(domain.RiskPosture) (domain.RiskPosture, error) {
		return rp, nil
	})
}

// EditSectorSentiment replaces the sector sentiment map.
func (o *Orchestrator) EditSectorSentiment(s domain.SectorSentiment) error {
	if err := domain.ValidateSectorSentiment(s); err != nil {
		return err
	}
	return edit(o, o.sentiment, func(domain.SectorSentiment) (domain.SectorSentiment, error) {
		return s.Clone(), nil
	})
}

// SetSectorScore sets one sector from raw operator input.
func (o *Orchestrator) SetSectorScore(sector, raw string) error {
	score, err := domain.ParseNumber("sector_sentiment."+sector, raw)
	if err != nil {
		return err
	}
	if err := domain.ValidateSectorSentiment(domain.SectorSentiment{sector: score}); err != nil {
		return err
	}
	return edit(o, o.sentiment, func(s domain.SectorSentiment) (domain.SectorSentiment, error) {
		out := s.Clone()
		out[sector] = score
		return out, nil
	})
}

// SetRegimeField parses raw for key under the draft's allocator version and
// stores it. Malformed input is rejected naming the field.
func (o *Orchestrator) SetRegimeField(key, raw string) error {
	return edit(o, o.regime, func(r RegimeDraft) (RegimeDraft, error) {
		version := r.Version.Normalize()
		v, err := regime.ParseField(version, key, raw)
		if err != nil {
			return r, err
		}
		out := r.Clone()
		out.Version = version
		out.Values[key] = v
		return out, nil
	})
}

// SetAllocatorVersion retargets the regime at version. Keys the new version
// does not declare are dropped and reported as a warning.
func (o *Orchestrator) SetAllocatorVersion(version domain.AllocatorVersion) error {
	version = version.Normalize()
	if _, err := regime.Fields(version); err != nil {
		return &domain.ValidationError{Field: "allocator_version", Value: version, Reason: err.Error()}
	}

	var dropped []string
	err := edit(o, o.regime, func(r RegimeDraft) (RegimeDraft, error) {
		values, d, err := regime.Sanitize(version, r.Values)
		if err != nil {
			return r, err
		}
		dropped = d
		return RegimeDraft{Version: version, Values: values}, nil
	})
	if err != nil {
		return err
	}

	warning := ""
	if len(dropped) > 0 {
		warning = fmt.Sprintf("regime fields not declared by %s were dropped: %s", version, strings.Join(dropped, ", "))
	}
	o.mu.Lock()
	o.regimeWarning = warning
	o.mu.Unlock()
	return nil
}
