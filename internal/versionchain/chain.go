// Package versionchain implements the append-only, hash-linked sequence of
// versions for one asset. It is pure derivation and validation logic: the
// chain itself lives in the persistence gateway, and this package computes
// linkage fields for new versions and verifies the integrity of stored ones.
package versionchain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/landtruth/registry/internal/registry/model"
)

// GenesisPrevHash is the well-known sentinel stored as the previous-version
// hash of every sequence-0 version. It is fixed and stable across
// implementations so independently built tools can verify the same chains.
const GenesisPrevHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ContentHash computes the deterministic SHA-256 hash of a version's
// canonical encoding: asset id, sequence, and every payload field in a fixed
// order. Each field is written length-prefixed so a delimiter character
// inside one field can never collide with a shifted split of its neighbors.
// Timestamps are deliberately excluded so the hash is reproducible from the
// stored record alone.
func ContentHash(assetID string, sequence int, p model.Payload) string {
	fields := []string{
		assetID,
		strconv.Itoa(sequence),
		string(p.Status),
		p.Owner,
		p.Name,
		strconv.FormatFloat(p.LocationLat, 'f', 8, 64),
		strconv.FormatFloat(p.LocationLon, 'f', 8, 64),
		strconv.FormatFloat(p.SizeHectares, 'f', 8, 64),
		p.ChangeReason,
	}

	h := sha256.New()
	for _, f := range fields {
		fmt.Fprintf(h, "%d:%s|", len(f), f)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Genesis builds the sequence-0 version for a new asset. The previous hash is
// the well-known sentinel rather than a computed value.
func Genesis(assetID string, p model.Payload, now time.Time) model.Version {
	return model.Version{
		AssetID:   assetID,
		Sequence:  0,
		Payload:   p,
		Hash:      ContentHash(assetID, 0, p),
		PrevHash:  GenesisPrevHash,
		CreatedAt: now.UTC(),
	}
}

// Next derives the version that follows prev: sequence advances by one and
// the previous-version hash links to prev's content hash.
func Next(prev model.Version, p model.Payload, now time.Time) model.Version {
	seq := prev.Sequence + 1
	return model.Version{
		AssetID:   prev.AssetID,
		Sequence:  seq,
		Payload:   p,
		Hash:      ContentHash(prev.AssetID, seq, p),
		PrevHash:  prev.Hash,
		CreatedAt: now.UTC(),
	}
}

// Verify walks an asset's stored versions, ordered by sequence, and checks
// hash-chain integrity: sequences form the contiguous range 0..N, the genesis
// previous hash equals the sentinel, every later previous hash equals the
// preceding version's content hash, and every stored content hash recomputes
// from the record. The first violation is returned as a *model.ErrIntegrity;
// callers treat it as store corruption, never as something to repair.
func Verify(assetID string, versions []model.Version) error {
	if len(versions) == 0 {
		return &model.ErrIntegrity{AssetID: assetID, Sequence: 0, Reason: "no versions stored"}
	}

	var prev model.Version
	for i, curr := range versions {
		if curr.Sequence != i {
			return &model.ErrIntegrity{
				AssetID:  assetID,
				Sequence: curr.Sequence,
				Reason:   fmt.Sprintf("sequence gap: expected %d", i),
			}
		}
		if curr.Hash != ContentHash(assetID, curr.Sequence, curr.Payload) {
			return &model.ErrIntegrity{
				AssetID:  assetID,
				Sequence: curr.Sequence,
				Reason:   "content hash does not recompute",
			}
		}

		if i == 0 {
			if curr.PrevHash != GenesisPrevHash {
				return &model.ErrIntegrity{
					AssetID:  assetID,
					Sequence: 0,
					Reason:   "genesis previous hash is not the sentinel",
				}
			}
		} else if curr.PrevHash != prev.Hash {
			return &model.ErrIntegrity{
				AssetID:  assetID,
				Sequence: curr.Sequence,
				Reason:   "previous hash does not match preceding version",
			}
		}
		prev = curr
	}
	return nil
}
