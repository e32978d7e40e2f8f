package store

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/seglab/xliffcat/internal/domain"
	"github.com/seglab/xliffcat/internal/sim"
	"github.com/seglab/xliffcat/internal/xliff"
)

// candidate is one non-final translatable segment scored against a freshly
// confirmed source.
type candidate struct {
	file, unit, seg string
	state           string
	preserve        bool
	similarity      int
	element         *etree.Element
	tagsData        map[string]string
}

// propagate scans every non-final translatable segment in the document
// against a confirmed source. Candidates scoring above the threshold get a
// Self match recorded; exact candidates still in initial state additionally
// receive the confirmed target, re-tagged for their own inline codes, moving
// to translated but never to final. All writes of one scan commit together.
func (s *Store) propagate(source, target *etree.Element) ([]domain.Propagated, error) {
	dummySource := sim.DummyTag(source)

	rows, err := s.db.Query(
		"SELECT file, unitId, segId, source, state, tags, space FROM segments WHERE translate='Y' AND type='S' AND state <> ?",
		domain.Final)
	if err != nil {
		return nil, fmt.Errorf("scan candidates: %w", err)
	}
	var selected []candidate
	for rows.Next() {
		var c candidate
		var src, space string
		var tags int
		if err := rows.Scan(&c.file, &c.unit, &c.seg, &src, &c.state, &tags, &space); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.preserve = space == "Y"
		if c.element, err = xliff.Parse(src); err != nil {
			rows.Close()
			return nil, fmt.Errorf("parse candidate: %w", err)
		}
		c.similarity = sim.Similarity(dummySource, sim.DummyTag(c.element)) -
			sim.TagDifferences(source, c.element)
		if c.similarity <= sim.Threshold {
			continue
		}
		c.tagsData = map[string]string{}
		if tags > 0 {
			if c.tagsData, err = s.getUnitData(c.file, c.unit); err != nil {
				rows.Close()
				return nil, err
			}
		}
		selected = append(selected, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var result []domain.Propagated
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin propagation: %w", err)
	}
	for _, c := range selected {
		if c.similarity == 100 && c.state == domain.Initial {
			r := xliff.NewRenderer(s.cfg.ImagesURL)
			r.Render(c.element, c.tagsData)
			r.Reset()
			translation := r.Render(target, c.tagsData)

			translated := etree.NewElement("target")
			translated.CreateAttr("xml:lang", s.tgtLang)
			if c.preserve {
				translated.CreateAttr("xml:space", "preserve")
			} else {
				translated.CreateAttr("xml:space", "default")
			}
			setContent(translated, target.Copy())
			if _, err := updateTargetTx(tx, c.file, c.unit, c.seg, translated,
				xliff.PureText(translated), false); err != nil {
				tx.Rollback()
				return nil, err
			}
			result = append(result, domain.Propagated{
				File: c.file, Unit: c.unit, Segment: c.seg, Match: 100, Target: translation,
			})
		}
		if err := s.upsertMatchTx(tx, c.file, c.unit, c.seg, domain.Self, domain.TM,
			c.similarity, source.Copy(), target.Copy(), c.tagsData); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit propagation: %w", err)
	}

	for _, c := range selected {
		best, err := s.bestMatch(c.file, c.unit, c.seg)
		if err != nil {
			return nil, err
		}
		result = append(result, domain.Propagated{
			File: c.file, Unit: c.unit, Segment: c.seg, Match: best,
		})
	}
	return result, nil
}
