package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/beevik/etree"

	"github.com/seglab/xliffcat/internal/domain"
	"github.com/seglab/xliffcat/internal/sim"
	"github.com/seglab/xliffcat/internal/tm"
	"github.com/seglab/xliffcat/internal/xliff"
)

// matchID derives the key that makes re-scoring an update instead of a
// duplicate insert. MT matches use the provider's own key; everything else
// hashes the plain source text together with the origin.
func matchID(source *etree.Element, origin, mtype string) string {
	if mtype == domain.MT {
		return origin
	}
	h := fnv.New64a()
	h.Write([]byte(xliff.PureText(source)))
	h.Write([]byte{0})
	h.Write([]byte(origin))
	return fmt.Sprintf("%x", h.Sum64())
}

// upsertMatchTx records an alternative translation, updating in place when
// a match with the same derived id already exists for the segment. Inline
// codes referenced by the source or target markup get their literals copied
// into the match's own data payload.
func (s *Store) upsertMatchTx(tx *sql.Tx, file, unit, seg, origin, mtype string,
	similarity int, source, target *etree.Element, tagsData map[string]string) error {

	id := matchID(source, origin, mtype)

	data := ""
	compressed := false
	if len(source.ChildElements()) > 0 || len(target.ChildElements()) > 0 {
		originalData := etree.NewElement("originalData")
		added := make(map[string]bool)
		for _, el := range append(source.ChildElements(), target.ChildElements()...) {
			if el.Tag == "mrk" || el.Tag == "pc" || el.Tag == "cp" {
				continue
			}
			ref := el.SelectAttrValue("dataRef", "")
			if literal, ok := tagsData[ref]; ok && !added[ref] {
				d := originalData.CreateElement("data")
				d.CreateAttr("id", ref)
				d.SetText(literal)
				added[ref] = true
			} else if !added[ref] {
				el.RemoveAttr("dataRef")
			}
		}
		if len(originalData.ChildElements()) > 0 {
			var err error
			data, compressed, err = maybeCompress(xliff.ToString(originalData))
			if err != nil {
				return err
			}
		}
	}

	res, err := tx.Exec(`UPDATE matches SET origin=?, type=?, similarity=?, source=?, target=?, data=?, compressed=?
		WHERE file=? AND unitId=? AND segId=? AND matchId=?`,
		origin, mtype, similarity, xliff.ToString(source), xliff.ToString(target),
		data, flag(compressed), file, unit, seg, id)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	_, err = tx.Exec(`INSERT INTO matches (file, unitId, segId, matchId, origin, type, similarity, source, target, data, compressed)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		file, unit, seg, id, origin, mtype, similarity,
		xliff.ToString(source), xliff.ToString(target), data, flag(compressed))
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// GetMatches returns a segment's alternative translations ordered by
// similarity descending, raw markup included.
func (s *Store) GetMatches(file, unit, seg string) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getMatches(file, unit, seg)
}

func (s *Store) getMatches(file, unit, seg string) ([]domain.Match, error) {
	rows, err := s.db.Query(`SELECT matchId, origin, type, similarity, source, target
		FROM matches WHERE file=? AND unitId=? AND segId=? ORDER BY similarity DESC`,
		file, unit, seg)
	if err != nil {
		return nil, fmt.Errorf("get matches: %w", err)
	}
	defer rows.Close()

	var result []domain.Match
	for rows.Next() {
		m := domain.Match{File: file, Unit: unit, Segment: seg}
		if err := rows.Scan(&m.MatchID, &m.Origin, &m.Type, &m.Similarity, &m.Source, &m.Target); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// GetTaggedMatches returns a segment's matches with source and target
// rendered in the placeholder representation for display.
func (s *Store) GetTaggedMatches(file, unit, seg string) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.getUnitData(file, unit)
	if err != nil {
		return nil, err
	}
	matches, err := s.getMatches(file, unit, seg)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		source, err := xliff.Parse(matches[i].Source)
		if err != nil {
			return nil, fmt.Errorf("parse match source: %w", err)
		}
		target, err := xliff.Parse(matches[i].Target)
		if err != nil {
			return nil, fmt.Errorf("parse match target: %w", err)
		}
		r := xliff.NewRenderer(s.cfg.ImagesURL)
		matches[i].Source = r.Render(source, data)
		r.Reset()
		matches[i].Target = r.Render(target, data)
	}
	return matches, nil
}

// bestMatch returns the displayed match score: the highest similarity among
// non-MT matches, 0 when the segment has none.
func (s *Store) bestMatch(file, unit, seg string) (int, error) {
	var similarity int
	err := s.db.QueryRow(`SELECT similarity FROM matches
		WHERE file=? AND unitId=? AND segId=? AND type <> ? ORDER BY similarity DESC LIMIT 1`,
		file, unit, seg, domain.MT).Scan(&similarity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("best match: %w", err)
	}
	return similarity, nil
}

// getUnitData loads a unit's inline-code map, decompressing when flagged.
func (s *Store) getUnitData(file, unit string) (map[string]string, error) {
	var stored string
	var compressed string
	err := s.db.QueryRow("SELECT data, compressed FROM units WHERE file=? AND unitId=?",
		file, unit).Scan(&stored, &compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get unit data: %w", err)
	}
	raw, err := expand(stored, compressed == "Y")
	if err != nil {
		return nil, err
	}
	data := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("parse unit data: %w", err)
	}
	return data, nil
}

// MachineTranslate fetches alternatives from a machine-translation provider
// and records them. MT matches carry similarity 0 and are keyed by the
// provider's own key, so repeat calls update rather than duplicate.
func (s *Store) MachineTranslate(file, unit, seg string, translator tm.Translator) ([]domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pure string
	err := s.db.QueryRow("SELECT sourceText FROM segments WHERE file=? AND unitId=? AND segId=?",
		file, unit, seg).Scan(&pure)
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}

	translations, err := translator.Translate(pure)
	if err != nil {
		return nil, fmt.Errorf("machine translate: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	for _, t := range translations {
		source := etree.NewElement("source")
		source.CreateAttr("xml:lang", t.SrcLang)
		source.SetText(pure)
		target := etree.NewElement("target")
		target.CreateAttr("xml:lang", t.TgtLang)
		target.SetText(t.Target)
		if err := s.upsertMatchTx(tx, file, unit, seg, t.Key, domain.MT, 0, source, target, nil); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.getMatches(file, unit, seg)
}

// TMTranslate fetches alternatives for one segment from a translation
// memory and records them with the tag-structure penalty applied.
func (s *Store) TMTranslate(file, unit, seg, memory string) ([]domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.memories == nil {
		return nil, errors.New("no memory pool configured")
	}
	var src, pure string
	err := s.db.QueryRow("SELECT source, sourceText FROM segments WHERE file=? AND unitId=? AND segId=?",
		file, unit, seg).Scan(&src, &pure)
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	original, err := xliff.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}

	engine, err := s.memories.Open(memory)
	if err != nil {
		return nil, fmt.Errorf("open memory: %w", err)
	}
	defer s.memories.Close(memory)

	found, err := engine.SearchTranslation(pure, s.srcLang, s.tgtLang, sim.Threshold, false)
	if err != nil {
		return nil, fmt.Errorf("search memory: %w", err)
	}
	if err := s.recordEngineMatches(file, unit, seg, original, s.memories.DisplayName(memory), found); err != nil {
		return nil, err
	}
	return s.getMatches(file, unit, seg)
}

// TMTranslateAll runs a memory lookup over every non-final translatable
// segment in the document.
func (s *Store) TMTranslateAll(memory string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.memories == nil {
		return errors.New("no memory pool configured")
	}
	engine, err := s.memories.Open(memory)
	if err != nil {
		return fmt.Errorf("open memory: %w", err)
	}
	defer s.memories.Close(memory)
	name := s.memories.DisplayName(memory)

	type row struct {
		file, unit, seg, src, pure string
	}
	rows, err := s.db.Query("SELECT file, unitId, segId, source, sourceText FROM segments WHERE type='S' AND state <> ?",
		domain.Final)
	if err != nil {
		return fmt.Errorf("list segments: %w", err)
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.file, &r.unit, &r.seg, &r.src, &r.pure); err != nil {
			rows.Close()
			return fmt.Errorf("scan segment: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range pending {
		original, err := xliff.Parse(r.src)
		if err != nil {
			return fmt.Errorf("parse source: %w", err)
		}
		found, err := engine.SearchTranslation(r.pure, s.srcLang, s.tgtLang, sim.Threshold, false)
		if err != nil {
			return fmt.Errorf("search memory: %w", err)
		}
		if err := s.recordEngineMatches(r.file, r.unit, r.seg, original, name, found); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) recordEngineMatches(file, unit, seg string, original *etree.Element,
	origin string, found []tm.Match) error {

	if len(found) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, m := range found {
		source, err := xliff.Parse("<source>" + m.Source + "</source>")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("parse memory source: %w", err)
		}
		source.CreateAttr("xml:lang", s.srcLang)
		target, err := xliff.Parse("<target>" + m.Target + "</target>")
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("parse memory target: %w", err)
		}
		target.CreateAttr("xml:lang", s.tgtLang)
		similarity := m.Similarity - sim.TagDifferences(original, source)
		if err := s.upsertMatchTx(tx, file, unit, seg, origin, domain.TM, similarity, source, target, nil); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
