package store

import (
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/beevik/etree"

	"github.com/seglab/xliffcat/internal/domain"
	"github.com/seglab/xliffcat/internal/tm"
	"github.com/seglab/xliffcat/internal/xliff"
)

// GetSegments returns one page of segment views ordered by (file, ordinal).
// files narrows the listing to the given file ids when non-empty.
func (s *Store) GetSegments(files []string, start, count int, filter domain.Filter) ([]domain.SegmentView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pattern *regexp.Regexp
	if filter.Text != "" && filter.Regexp {
		var err error
		pattern, err = s.patternFor(filter.Text)
		if err != nil {
			return nil, err
		}
	}

	where := []string{"type='S'"}
	var args []interface{}
	if len(files) > 0 {
		where = append(where, "file IN (?"+strings.Repeat(",?", len(files)-1)+")")
		for _, f := range files {
			args = append(args, f)
		}
	}
	if filter.Untranslated {
		where = append(where, "state=?")
		args = append(args, domain.Initial)
	}
	if filter.Text != "" && !filter.Regexp {
		clause, clauseArgs := textClause(filter)
		where = append(where, clause)
		args = append(args, clauseArgs...)
	}

	query := `SELECT file, unitId, segId, source, sourceText, target, targetText, tags, state, space, translate
		FROM segments WHERE ` + strings.Join(where, " AND ") + " ORDER BY file, child"
	if pattern == nil {
		query += " LIMIT ? OFFSET ?"
		args = append(args, count, start)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var result []domain.SegmentView
	skipped := 0
	for rows.Next() {
		var file, unit, segID, src, srcText, tgt, tgtText, state, space, translate string
		var tags int
		if err := rows.Scan(&file, &unit, &segID, &src, &srcText, &tgt, &tgtText, &tags, &state, &space, &translate); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		if pattern != nil {
			if !matchesScope(pattern, filter.Language, srcText, tgtText) {
				continue
			}
			if skipped < start {
				skipped++
				continue
			}
			if len(result) >= count {
				break
			}
		}

		data := map[string]string{}
		if tags > 0 {
			if data, err = s.getUnitData(file, unit); err != nil {
				return nil, err
			}
		}
		source, err := xliff.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse source: %w", err)
		}
		target := etree.NewElement("target")
		if strings.TrimSpace(tgt) != "" {
			if target, err = xliff.Parse(tgt); err != nil {
				return nil, fmt.Errorf("parse target: %w", err)
			}
		}

		best, err := s.bestMatch(file, unit, segID)
		if err != nil {
			return nil, err
		}

		r := xliff.NewRenderer(s.cfg.ImagesURL)
		view := domain.SegmentView{
			Index:     start + len(result),
			File:      file,
			Unit:      unit,
			Segment:   segID,
			State:     state,
			Translate: translate == "Y",
			Preserve:  space == "Y",
			Match:     best,
		}
		view.Source = r.RenderFiltered(source, data, filter.Text, filter.CaseSensitive, pattern)
		r.Reset()
		view.Target = r.RenderFiltered(target, data, filter.Text, filter.CaseSensitive, pattern)
		result = append(result, view)
	}
	return result, rows.Err()
}

// textClause pushes a plain-text filter into SQL on the scoped columns.
func textClause(filter domain.Filter) (string, []interface{}) {
	col := func(name string) string {
		if filter.CaseSensitive {
			return "instr(" + name + ", ?) > 0"
		}
		return "instr(lower(" + name + "), lower(?)) > 0"
	}
	switch filter.Language {
	case "source":
		return col("sourceText"), []interface{}{filter.Text}
	case "target":
		return col("targetText"), []interface{}{filter.Text}
	default:
		return "(" + col("sourceText") + " OR " + col("targetText") + ")", []interface{}{filter.Text, filter.Text}
	}
}

func matchesScope(pattern *regexp.Regexp, language, srcText, tgtText string) bool {
	switch language {
	case "source":
		return pattern.MatchString(srcText)
	case "target":
		return pattern.MatchString(tgtText)
	default:
		return pattern.MatchString(srcText) || pattern.MatchString(tgtText)
	}
}

// SaveSegment merges an edited translation into the stored target,
// recomputes its state, and, on confirmation of a non-blank target, runs
// propagation and reports its side effects. When memory names a translation
// memory, the confirmed pair is stored there asynchronously; failures of
// that write are logged, never surfaced.
func (s *Store) SaveSegment(file, unit, seg, translation string, confirm bool, memory string) ([]domain.Propagated, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	translation = strings.ReplaceAll(translation, "&nbsp;", "\u00A0")

	var src string
	err := s.db.QueryRow("SELECT source FROM segments WHERE file=? AND unitId=? AND segId=?",
		file, unit, seg).Scan(&src)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	source, err := xliff.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	codes := xliff.CodeTable(source)
	translation = xliff.RestoreCodes(translation, codes)

	translated, err := xliff.Parse("<target>" + translation + "</target>")
	if err != nil {
		return nil, fmt.Errorf("parse translation: %w", err)
	}

	var tgt string
	err = s.db.QueryRow("SELECT target FROM segments WHERE file=? AND unitId=? AND segId=?",
		file, unit, seg).Scan(&tgt)
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}
	target := etree.NewElement("target")
	if strings.TrimSpace(tgt) != "" {
		if target, err = xliff.Parse(tgt); err != nil {
			return nil, fmt.Errorf("parse target: %w", err)
		}
	}
	setContent(target, translated)
	pureTarget := xliff.PureText(target)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	if _, err := updateTargetTx(tx, file, unit, seg, target, pureTarget, confirm); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	var result []domain.Propagated
	if confirm && strings.TrimSpace(pureTarget) != "" {
		if result, err = s.propagate(source, target); err != nil {
			return nil, err
		}
	}

	if memory != "" && memory != domain.None && s.memories != nil {
		tu := tmUnit(s.xliffFile, file, unit, seg, source, target, codes)
		go s.storePair(memory, tu)
	}
	return result, nil
}

// storePair is the fire-and-forget side of SaveSegment. Errors are logged,
// not propagated.
func (s *Store) storePair(memory string, tu tmTU) {
	engine, err := s.memories.Open(memory)
	if err != nil {
		s.log.Error("open memory", "memory", memory, "error", err)
		return
	}
	defer s.memories.Close(memory)
	if err := engine.StoreTU(tu.toTU()); err != nil {
		s.log.Error("store translation unit", "memory", memory, "tu", tu.id, "error", err)
	}
}

// tmTU snapshots everything the background memory write needs before the
// elements are reused.
type tmTU struct {
	id     string
	source string
	target string
	tags   map[string]string
}

func tmUnit(xliffFile, file, unit, seg string, source, target *etree.Element, codes map[string]string) tmTU {
	h := fnv.New32a()
	h.Write([]byte(xliffFile))
	return tmTU{
		id:     fmt.Sprintf("%d-%s-%s-%s", h.Sum32(), file, unit, seg),
		source: xliff.ToString(source),
		target: xliff.ToString(target),
		tags:   codes,
	}
}

func (t tmTU) toTU() tm.TU {
	return tm.TU{ID: t.id, Source: t.source, Target: t.target, Tags: t.tags}
}

// updateTargetTx persists a target edit with its state transition and
// returns the number of rows affected. Missing keys update zero rows.
func updateTargetTx(tx *sql.Tx, file, unit, seg string, target *etree.Element, pureTarget string, confirm bool) (int64, error) {
	state := domain.Translated
	switch {
	case strings.TrimSpace(pureTarget) == "":
		state = domain.Initial
	case confirm:
		state = domain.Final
	}
	res, err := tx.Exec("UPDATE segments SET target=?, targetText=?, state=? WHERE file=? AND unitId=? AND segId=?",
		xliff.ToString(target), pureTarget, state, file, unit, seg)
	if err != nil {
		return 0, fmt.Errorf("update target: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update target: %w", err)
	}
	return n, nil
}

// setContent replaces dst's children with src's children.
func setContent(dst, src *etree.Element) {
	for len(dst.Child) > 0 {
		dst.RemoveChildAt(0)
	}
	kids := append([]etree.Token(nil), src.Child...)
	for _, k := range kids {
		dst.AddChild(k)
	}
}

// TranslationStatus aggregates word counts by state.
func (s *Store) TranslationStatus() (domain.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st domain.Status
	sums := []struct {
		query string
		dest  *int
	}{
		{"SELECT COALESCE(SUM(words),0) FROM segments", &st.Total},
		{"SELECT COALESCE(SUM(words),0) FROM segments WHERE state=?", &st.Confirmed},
		{"SELECT COALESCE(SUM(words),0) FROM segments WHERE state <> ?", &st.Translated},
	}
	if err := s.db.QueryRow(sums[0].query).Scan(sums[0].dest); err != nil {
		return st, fmt.Errorf("sum words: %w", err)
	}
	if err := s.db.QueryRow(sums[1].query, domain.Final).Scan(sums[1].dest); err != nil {
		return st, fmt.Errorf("sum confirmed: %w", err)
	}
	if err := s.db.QueryRow(sums[2].query, domain.Initial).Scan(sums[2].dest); err != nil {
		return st, fmt.Errorf("sum translated: %w", err)
	}
	if st.Total != 0 {
		st.Percentage = int(math.Round(float64(st.Confirmed) * 100 / float64(st.Total)))
	}
	st.Text = fmt.Sprintf("Words: %d\u00A0\u00A0\u00A0Translated: %d\u00A0\u00A0\u00A0Confirmed: %d",
		st.Total, st.Translated, st.Confirmed)
	st.SVG = makeSVG(st.Percentage)
	return st, nil
}

func makeSVG(percentage int) string {
	return fmt.Sprintf("<svg xmlns='http://www.w3.org/2000/svg' width='100' height='14'>"+
		"<rect width='100' height='12' y='1' style='fill:%s'/>"+
		"<rect width='%d' height='12' y='1' style='fill:%s'/></svg>",
		"#cccccc", percentage, "#009688")
}
