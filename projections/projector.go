package projections

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/auctionhouse/services/indexer/domain"
	"example.com/auctionhouse/services/indexer/ledger"
	"example.com/auctionhouse/services/indexer/models"
	"example.com/auctionhouse/services/indexer/store"
)

// Projector folds upstream auctioneer events into the derived entities.
// It owns no storage itself: the caller passes the entity store scoped to
// the current event's transaction, so one event's writes land atomically.
type Projector struct {
	ledger ledger.Reader
}

// NewProjector creates a new projector backed by the given ledger reader.
func NewProjector(ledgerReader ledger.Reader) *Projector {
	return &Projector{ledger: ledgerReader}
}

// Apply projects a single event. Any error is fatal for the projection run:
// the event must be retried, never skipped, to preserve total order.
func (p *Projector) Apply(ctx context.Context, st store.EntityStore, ev domain.Event) error {
	payload, err := domain.DecodeEvent(ev)
	if err != nil {
		return err
	}

	switch data := payload.(type) {
	case *domain.AuctionCreatedEvent:
		return p.applyAuctionCreated(ctx, st, ev, data)
	case *domain.AuctionCancelledEvent:
		return p.applyAuctionCancelled(ctx, st, ev, data)
	case *domain.BidEvent:
		return p.applyBid(ctx, st, ev, data)
	case *domain.SelectedRuneEvent:
		return p.applySelectedRune(ctx, st, ev, data)
	case *domain.ClaimedEvent:
		return p.applyClaimed(ctx, st, ev, data)
	case *domain.MessagedEvent:
		return p.applyMessaged(ctx, st, ev, data)
	case *domain.HarvestedLotEvent:
		return p.applyHarvested(ctx, st, data)
	case *domain.UpdatedAliasEvent:
		return p.applyUpdatedAlias(ctx, st, data)
	case *domain.MutedUserEvent:
		return p.applyMutedUser(ctx, st, data)
	default:
		return fmt.Errorf("no handler for event kind %s", ev.Kind)
	}
}

// suppress empties user-provided text while the author is muted.
func suppress(muted bool, text string) string {
	if muted {
		return ""
	}
	return text
}

func (p *Projector) applyAuctionCreated(ctx context.Context, st store.EntityStore, ev domain.Event, data *domain.AuctionCreatedEvent) error {
	if _, err := st.Auction(ctx, data.Lot); err == nil {
		// Creation is idempotent; committed history is never rewritten.
		log.Warn().Int64("lot", data.Lot).Msg("Auction already exists, skipping creation")
		return nil
	} else if !isNotFound(err) {
		return err
	}

	hasEmissions, err := p.ledger.AuctionHasEmissions(ctx, data.Lot)
	if err != nil {
		return fmt.Errorf("failed to read emission flag for lot %d: %w", data.Lot, err)
	}
	hasRunes, err := p.ledger.AuctionHasRunes(ctx, data.Lot)
	if err != nil {
		return fmt.Errorf("failed to read rune flag for lot %d: %w", data.Lot, err)
	}

	auction := &models.Auction{
		Lot:             domain.AuctionKey(data.Lot),
		Name:            data.Name,
		UnlockTimestamp: time.Unix(data.UnlockTimestamp, 0).UTC(),
		HasEmissions:    hasEmissions,
		HasRunes:        hasRunes,
		Sequence:        0,
	}
	if err := st.SaveAuction(ctx, auction); err != nil {
		return err
	}

	if err := st.SaveBidData(ctx, &models.AuctionBidData{Lot: auction.Lot}); err != nil {
		return err
	}

	return st.AppendMessage(ctx, &models.AuctionMessage{
		Key:       domain.MessageKey(data.Lot, 0),
		Lot:       auction.Lot,
		Index:     0,
		Type:      models.MessageTypeCreated,
		Message:   "CREATED",
		Timestamp: ev.Timestamp,
	})
}

func (p *Projector) applyAuctionCancelled(ctx context.Context, st store.EntityStore, ev domain.Event, data *domain.AuctionCancelledEvent) error {
	auction, err := st.Auction(ctx, data.Lot)
	if err != nil {
		return fmt.Errorf("cancellation of unknown auction: %w", err)
	}

	auction.Cancelled = true
	auction.Finalized = true
	auction.Sequence++
	if err := st.SaveAuction(ctx, auction); err != nil {
		return err
	}

	return st.AppendMessage(ctx, &models.AuctionMessage{
		Key:       domain.MessageKey(data.Lot, auction.Sequence),
		Lot:       auction.Lot,
		Index:     auction.Sequence,
		Type:      models.MessageTypeInfo,
		Message:   "CANCELLED",
		Timestamp: ev.Timestamp,
	})
}

func (p *Projector) applyBid(ctx context.Context, st store.EntityStore, ev domain.Event, data *domain.BidEvent) error {
	address, err := domain.NormalizeAddress(data.User)
	if err != nil {
		return err
	}

	auction, err := st.Auction(ctx, data.Lot)
	if err != nil {
		return fmt.Errorf("bid on unknown auction: %w", err)
	}
	bidData, err := st.BidData(ctx, data.Lot)
	if err != nil {
		return fmt.Errorf("bid on auction without bid data: %w", err)
	}

	user, err := st.EnsureUser(ctx, address)
	if err != nil {
		return err
	}
	participant, err := st.EnsureParticipant(ctx, data.Lot, address)
	if err != nil {
		return err
	}

	priorRune := participant.Rune
	firstBid := !participant.HasBid

	sw, err := p.runeSwitch(ctx, auction, participant.Bids, priorRune, data.Rune)
	if err != nil {
		return err
	}

	if err := p.applyRuneDeltas(ctx, st, auction, bidData, sw, priorRune, data.Rune, participant.Bids, data.BidCount); err != nil {
		return err
	}

	// Participant
	participant.Bids = sw.WeightAfter + data.BidCount
	participant.HasBid = true
	participant.LastBidTimestamp = time.Unix(data.Timestamp, 0).UTC()
	if auction.HasRunes {
		participant.Rune = data.Rune
	}
	participant.Muted = user.Muted
	participant.Alias = suppress(user.Muted, data.Alias)
	if err := st.SaveParticipant(ctx, participant); err != nil {
		return err
	}

	// User totals
	user.TotalBidsCount += data.BidCount
	if firstBid {
		user.TotalAuctionsParticipated++
		user.InteractedAuctions = append(user.InteractedAuctions, auction.Lot)
		if auction.HasEmissions {
			user.HarvestableAuctions = append(user.HarvestableAuctions, auction.Lot)
		}
	}
	if err := st.SaveUser(ctx, user); err != nil {
		return err
	}

	// Lot aggregates
	bidData.Bids += data.BidCount
	bidData.Bid = data.Bid
	bidData.BidUser = address
	bidData.BidTimestamp = time.Unix(data.Timestamp, 0).UTC()
	if data.NextBidBy > 0 {
		bidData.NextBidBy = time.Unix(data.NextBidBy, 0).UTC()
	}
	if err := st.SaveBidData(ctx, bidData); err != nil {
		return err
	}

	message := suppress(user.Muted, data.Message)
	if err := updateStats(ctx, st, data.BidCount, sw.Penalized, message); err != nil {
		return err
	}

	auction.Sequence++
	if err := st.SaveAuction(ctx, auction); err != nil {
		return err
	}

	return st.AppendMessage(ctx, &models.AuctionMessage{
		Key:       domain.MessageKey(data.Lot, auction.Sequence),
		Lot:       auction.Lot,
		Index:     auction.Sequence,
		Type:      models.MessageTypeBid,
		Address:   address,
		Alias:     suppress(user.Muted, data.Alias),
		PrevRune:  priorRune,
		Rune:      data.Rune,
		Message:   message,
		Bid:       data.Bid,
		BidCount:  data.BidCount,
		Timestamp: ev.Timestamp,
	})
}

func (p *Projector) applySelectedRune(ctx context.Context, st store.EntityStore, ev domain.Event, data *domain.SelectedRuneEvent) error {
	address, err := domain.NormalizeAddress(data.User)
	if err != nil {
		return err
	}

	auction, err := st.Auction(ctx, data.Lot)
	if err != nil {
		return fmt.Errorf("rune selection on unknown auction: %w", err)
	}
	bidData, err := st.BidData(ctx, data.Lot)
	if err != nil {
		return fmt.Errorf("rune selection on auction without bid data: %w", err)
	}

	user, err := st.EnsureUser(ctx, address)
	if err != nil {
		return err
	}
	participant, err := st.EnsureParticipant(ctx, data.Lot, address)
	if err != nil {
		return err
	}

	priorRune := participant.Rune

	sw, err := p.runeSwitch(ctx, auction, participant.Bids, priorRune, data.Rune)
	if err != nil {
		return err
	}

	if err := p.applyRuneDeltas(ctx, st, auction, bidData, sw, priorRune, data.Rune, participant.Bids, 0); err != nil {
		return err
	}
	if err := st.SaveBidData(ctx, bidData); err != nil {
		return err
	}

	participant.Bids = sw.WeightAfter
	if auction.HasRunes {
		participant.Rune = data.Rune
	}
	participant.Muted = user.Muted
	participant.Alias = suppress(user.Muted, data.Alias)
	if err := st.SaveParticipant(ctx, participant); err != nil {
		return err
	}

	message := suppress(user.Muted, data.Message)
	if err := updateStats(ctx, st, 0, sw.Penalized, message); err != nil {
		return err
	}

	auction.Sequence++
	if err := st.SaveAuction(ctx, auction); err != nil {
		return err
	}

	return st.AppendMessage(ctx, &models.AuctionMessage{
		Key:       domain.MessageKey(data.Lot, auction.Sequence),
		Lot:       auction.Lot,
		Index:     auction.Sequence,
		Type:      models.MessageTypeSelectedRune,
		Address:   address,
		Alias:     suppress(user.Muted, data.Alias),
		PrevRune:  priorRune,
		Rune:      data.Rune,
		Message:   message,
		Timestamp: ev.Timestamp,
	})
}

func (p *Projector) applyClaimed(ctx context.Context, st store.EntityStore, ev domain.Event, data *domain.ClaimedEvent) error {
	address, err := domain.NormalizeAddress(data.User)
	if err != nil {
		return err
	}

	auction, err := st.Auction(ctx, data.Lot)
	if err != nil {
		return fmt.Errorf("claim on unknown auction: %w", err)
	}

	user, err := st.EnsureUser(ctx, address)
	if err != nil {
		return err
	}
	user.TotalAuctionsWon++
	if err := st.SaveUser(ctx, user); err != nil {
		return err
	}

	participant, err := st.EnsureParticipant(ctx, data.Lot, address)
	if err != nil {
		return err
	}
	participant.Claimed = true
	participant.Muted = user.Muted
	participant.Alias = suppress(user.Muted, data.Alias)
	if err := st.SaveParticipant(ctx, participant); err != nil {
		return err
	}

	message := suppress(user.Muted, data.Message)
	if err := updateStats(ctx, st, 0, false, message); err != nil {
		return err
	}

	auction.Finalized = true
	auction.Sequence++
	if err := st.SaveAuction(ctx, auction); err != nil {
		return err
	}

	return st.AppendMessage(ctx, &models.AuctionMessage{
		Key:       domain.MessageKey(data.Lot, auction.Sequence),
		Lot:       auction.Lot,
		Index:     auction.Sequence,
		Type:      models.MessageTypeClaimed,
		Address:   address,
		Alias:     suppress(user.Muted, data.Alias),
		PrevRune:  participant.Rune,
		Rune:      participant.Rune,
		Message:   message,
		Timestamp: ev.Timestamp,
	})
}

func (p *Projector) applyMessaged(ctx context.Context, st store.EntityStore, ev domain.Event, data *domain.MessagedEvent) error {
	address, err := domain.NormalizeAddress(data.User)
	if err != nil {
		return err
	}

	auction, err := st.Auction(ctx, data.Lot)
	if err != nil {
		return fmt.Errorf("message on unknown auction: %w", err)
	}

	user, err := st.EnsureUser(ctx, address)
	if err != nil {
		return err
	}
	participant, err := st.EnsureParticipant(ctx, data.Lot, address)
	if err != nil {
		return err
	}
	participant.Muted = user.Muted
	participant.Alias = suppress(user.Muted, data.Alias)
	if err := st.SaveParticipant(ctx, participant); err != nil {
		return err
	}

	message := suppress(user.Muted, data.Message)
	if err := updateStats(ctx, st, 0, false, message); err != nil {
		return err
	}

	auction.Sequence++
	if err := st.SaveAuction(ctx, auction); err != nil {
		return err
	}

	return st.AppendMessage(ctx, &models.AuctionMessage{
		Key:       domain.MessageKey(data.Lot, auction.Sequence),
		Lot:       auction.Lot,
		Index:     auction.Sequence,
		Type:      models.MessageTypeMessaged,
		Address:   address,
		Alias:     suppress(user.Muted, data.Alias),
		PrevRune:  participant.Rune,
		Rune:      participant.Rune,
		Message:   message,
		Timestamp: ev.Timestamp,
	})
}

// applyHarvested records an emissions harvest. Harvests are not narrated in
// the auction log and do not advance the sequence counter.
func (p *Projector) applyHarvested(ctx context.Context, st store.EntityStore, data *domain.HarvestedLotEvent) error {
	address, err := domain.NormalizeAddress(data.User)
	if err != nil {
		return err
	}

	user, err := st.EnsureUser(ctx, address)
	if err != nil {
		return err
	}
	user.HarvestableAuctions = user.HarvestableAuctions.Remove(domain.AuctionKey(data.Lot))
	user.TotalEmissionsHarvested += data.UserEmissions
	user.TotalEmissionsBurned += data.UserEmissions
	if err := st.SaveUser(ctx, user); err != nil {
		return err
	}

	participant, err := st.EnsureParticipant(ctx, data.Lot, address)
	if err != nil {
		return err
	}
	participant.Harvested = true
	if err := st.SaveParticipant(ctx, participant); err != nil {
		return err
	}

	return addEmissionStats(ctx, st, data.UserEmissions)
}

func (p *Projector) applyUpdatedAlias(ctx context.Context, st store.EntityStore, data *domain.UpdatedAliasEvent) error {
	address, err := domain.NormalizeAddress(data.User)
	if err != nil {
		return err
	}

	user, err := st.EnsureUser(ctx, address)
	if err != nil {
		return err
	}
	if user.Muted {
		// Muted users cannot change their alias.
		return nil
	}

	user.Alias = data.Alias
	return st.SaveUser(ctx, user)
}

func (p *Projector) applyMutedUser(ctx context.Context, st store.EntityStore, data *domain.MutedUserEvent) error {
	address, err := domain.NormalizeAddress(data.User)
	if err != nil {
		return err
	}

	user, err := st.EnsureUser(ctx, address)
	if err != nil {
		return err
	}
	user.Muted = data.Muted
	if user.Muted {
		user.Alias = ""
	}
	return st.SaveUser(ctx, user)
}

// runeSwitch fetches the configured penalty rate and evaluates the switch
// for the participant's current position. The rate is read fresh for every
// event; it is an authoritative point-in-time input.
func (p *Projector) runeSwitch(ctx context.Context, auction *models.Auction, priorBids int64, priorRune, newRune uint8) (domain.RuneSwitch, error) {
	if !auction.HasRunes {
		return domain.RuneSwitch{WeightAfter: priorBids}, nil
	}

	penaltyBP, err := p.ledger.RuneSwitchPenalty(ctx)
	if err != nil {
		return domain.RuneSwitch{}, fmt.Errorf("failed to read rune switch penalty: %w", err)
	}

	return domain.ApplyRunePenalty(priorBids, priorRune, newRune, auction.HasRunes, penaltyBP)
}

// applyRuneDeltas reconciles the per-rune aggregates and the lot total for
// one rune-affecting event. addedWeight is new weight arriving with the same
// event; it joins the new rune after the penalty and is never discounted.
func (p *Projector) applyRuneDeltas(ctx context.Context, st store.EntityStore, auction *models.Auction, bidData *models.AuctionBidData, sw domain.RuneSwitch, priorRune, newRune uint8, priorBids, addedWeight int64) error {
	if !auction.HasRunes || newRune == domain.NoRune {
		return nil
	}

	entry, err := st.EnsureRune(ctx, lotOf(auction), newRune)
	if err != nil {
		return err
	}

	if sw.Penalized {
		prior, err := st.EnsureRune(ctx, lotOf(auction), priorRune)
		if err != nil {
			return err
		}
		prior.Bids += sw.PriorRuneDelta
		if err := st.SaveRune(ctx, prior); err != nil {
			return err
		}
		entry.Bids += sw.NewRuneDelta
		bidData.Bids += sw.TotalDelta
	} else if priorRune == domain.NoRune {
		// First selection: existing weight follows the participant intact.
		entry.Bids += priorBids
	}

	entry.Bids += addedWeight
	return st.SaveRune(ctx, entry)
}

func lotOf(auction *models.Auction) int64 {
	// Auction keys are decimal lot ids produced by domain.AuctionKey.
	lot, _ := strconv.ParseInt(auction.Lot, 10, 64)
	return lot
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
