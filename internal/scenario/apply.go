package scenario

import (
	"context"
	"fmt"

	"github.com/oshokin/energy-sim/internal/domain/energy"
	"github.com/oshokin/energy-sim/internal/logger"
	"github.com/oshokin/energy-sim/internal/simulation"
)

// Apply installs the scenario's topology into sys: aggregator states with
// their child sets, entity states and the clock's top-level nations.
func Apply(ctx context.Context, sys *simulation.System, sc *Scenario) error {
	for _, nation := range sc.Nations {
		nationState := &energy.AggregatorState{
			ID:           nation.ID,
			Name:         nation.Name,
			Level:        energy.LevelNation,
			CountryCode:  nation.CountryCode,
			GDPPerCapita: nation.GDPPerCapita,
		}

		for _, region := range nation.Regions {
			nationState.Children = append(nationState.Children, region.ID)

			if err := applyRegion(ctx, sys, nation.ID, region); err != nil {
				return err
			}
		}

		if err := sys.Nations().SetState(ctx, nation.ID, nationState); err != nil {
			return fmt.Errorf("nation %s: %w", nation.ID, err)
		}

		if err := sys.AttachNation(ctx, nation.ID); err != nil {
			return fmt.Errorf("nation %s: %w", nation.ID, err)
		}
	}

	logger.InfoKV(ctx, "Scenario applied", "nations", len(sc.Nations), "entities", sc.EntityCount())

	return nil
}

func applyRegion(ctx context.Context, sys *simulation.System, nationID string, region *Region) error {
	regionState := &energy.AggregatorState{
		ID:               region.ID,
		Name:             region.Name,
		Level:            energy.LevelRegion,
		ParentID:         nationID,
		Climate:          region.Climate,
		DevelopmentLevel: region.DevelopmentLevel,
	}

	for _, entity := range region.Entities {
		regionState.Children = append(regionState.Children, entity.State.ID)

		if err := sys.Entities().SetState(ctx, entity.State.ID, entity.State); err != nil {
			return fmt.Errorf("entity %s: %w", entity.State.ID, err)
		}
	}

	if err := sys.Regions().SetState(ctx, region.ID, regionState); err != nil {
		return fmt.Errorf("region %s: %w", region.ID, err)
	}

	return nil
}
