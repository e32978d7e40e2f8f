package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/beevik/etree"

	"github.com/seglab/xliffcat/internal/domain"
	"github.com/seglab/xliffcat/internal/xliff"
)

// walkState threads the traversal context through the import walk instead
// of holding it in instance fields.
type walkState struct {
	file      string
	unit      string
	translate bool
	preserve  bool
	tagCount  int
	nextID    int
	index     int
}

// importDocument populates the store from the parsed tree, one transaction
// per file element. Synthetic segment ids are written back into the tree so
// export reuses them.
func (s *Store) importDocument() error {
	root := s.document.Root()
	if root == nil {
		return errors.New("document has no root element")
	}
	for _, f := range root.SelectElements("file") {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin import: %w", err)
		}
		if err := s.importFile(tx, f); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit file: %w", err)
		}
	}
	return nil
}

func (s *Store) importFile(tx *sql.Tx, f *etree.Element) error {
	st := &walkState{file: f.SelectAttrValue("id", "")}
	if st.file == "" {
		return errors.New("file element without id")
	}
	_, err := tx.Exec("INSERT INTO files (id, name) VALUES (?,?)",
		st.file, f.SelectAttrValue("original", ""))
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	for _, child := range f.ChildElements() {
		if err := s.importElement(tx, child, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) importElement(tx *sql.Tx, e *etree.Element, st *walkState) error {
	switch e.Tag {
	case "unit":
		return s.importUnit(tx, e, st)
	case "segment":
		return s.importSegment(tx, e, st)
	case "ignorable":
		return s.importIgnorable(tx, e, st)
	default:
		for _, child := range e.ChildElements() {
			if err := s.importElement(tx, child, st); err != nil {
				return err
			}
		}
		return nil
	}
}

func (s *Store) importUnit(tx *sql.Tx, e *etree.Element, st *walkState) error {
	st.unit = e.SelectAttrValue("id", "")
	if st.unit == "" {
		return errors.New("unit element without id")
	}
	st.translate = e.SelectAttrValue("translate", "yes") == "yes"
	st.preserve = e.SelectAttrValue("xml:space", "default") == "preserve"
	st.tagCount = 0
	st.nextID = 0

	data := codeData(e.SelectElement("originalData"))
	st.tagCount = len(data)

	if matches := e.SelectElement("mtc:matches"); matches != nil {
		for _, m := range matches.SelectElements("mtc:match") {
			if err := s.importUnitMatch(tx, m, st); err != nil {
				return err
			}
		}
	}

	if st.tagCount > 0 {
		serialized, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("serialize unit data: %w", err)
		}
		stored, compressed, err := maybeCompress(string(serialized))
		if err != nil {
			return err
		}
		_, err = tx.Exec("INSERT INTO units (file, unitId, data, compressed) VALUES (?,?,?,?)",
			st.file, st.unit, stored, flag(compressed))
		if err != nil {
			return fmt.Errorf("insert unit: %w", err)
		}
	}

	for _, child := range e.ChildElements() {
		if err := s.importElement(tx, child, st); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) importSegment(tx *sql.Tx, e *etree.Element, st *walkState) error {
	id := e.SelectAttrValue("id", "")
	if id == "" {
		id = "s" + strconv.Itoa(st.nextID)
		st.nextID++
		e.CreateAttr("id", id)
	}
	source := e.SelectElement("source")
	if source == nil {
		return fmt.Errorf("segment %s/%s/%s has no source", st.file, st.unit, id)
	}
	sourcePreserve := source.SelectAttrValue("xml:space", "default") == "preserve"
	target := e.SelectElement("target")
	if target == nil {
		target = etree.NewElement("target")
		if sourcePreserve {
			target.CreateAttr("xml:space", "preserve")
		}
	}
	state := e.SelectAttrValue("state", "")
	if state == "" {
		state = domain.Translated
		if xliff.PureText(target) == "" {
			state = domain.Initial
		}
	}
	preserve := st.preserve || sourcePreserve ||
		target.SelectAttrValue("xml:space", "default") == "preserve"

	return s.insertSegment(tx, st, id, domain.KindSegment, st.translate, state, preserve, source, target)
}

func (s *Store) importIgnorable(tx *sql.Tx, e *etree.Element, st *walkState) error {
	id := e.SelectAttrValue("id", "")
	if id == "" {
		id = "i" + strconv.Itoa(st.nextID)
		st.nextID++
		e.CreateAttr("id", id)
	}
	source := e.SelectElement("source")
	if source == nil {
		return fmt.Errorf("ignorable %s/%s/%s has no source", st.file, st.unit, id)
	}
	target := e.SelectElement("target")
	if target == nil {
		target = etree.NewElement("target")
	}
	state := domain.Translated
	if xliff.PureText(target) == "" {
		state = domain.Initial
	}
	return s.insertSegment(tx, st, id, domain.KindIgnorable, false, state, st.preserve, source, target)
}

func (s *Store) insertSegment(tx *sql.Tx, st *walkState, segID, kind string, translate bool,
	state string, preserve bool, source, target *etree.Element) error {

	source.CreateAttr("xml:lang", s.srcLang)
	target.CreateAttr("xml:lang", s.tgtLang)
	pureSource := xliff.PureText(source)
	words := 0
	if kind == domain.KindSegment {
		words = xliff.CountWords(pureSource, s.srcLang)
	}
	_, err := tx.Exec(`INSERT INTO segments
		(file, unitId, segId, type, state, child, translate, tags, space, source, sourceText, target, targetText, words)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		st.file, st.unit, segID, kind, state, st.index, flag(translate), st.tagCount,
		flag(preserve), xliff.ToString(source), pureSource,
		xliff.ToString(target), xliff.PureText(target), words)
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	st.index++
	return nil
}

// importUnitMatch stores an alternative translation embedded in the source
// document. Entries that do not reference a segment are skipped.
func (s *Store) importUnitMatch(tx *sql.Tx, m *etree.Element, st *walkState) error {
	seg := m.SelectAttrValue("ref", "")
	if seg == "" {
		return nil
	}
	source := m.SelectElement("source")
	target := m.SelectElement("target")
	if source == nil || target == nil {
		return fmt.Errorf("match for %s/%s/%s lacks source or target", st.file, st.unit, seg)
	}
	similarity := 0.0
	if v := m.SelectAttrValue("similarity", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("match similarity: %w", err)
		}
		similarity = f
	}
	mtype := m.SelectAttrValue("type", domain.TM)
	origin := m.SelectAttrValue("origin", "")
	data := codeData(m.SelectElement("originalData"))
	return s.upsertMatchTx(tx, st.file, st.unit, seg, origin, mtype,
		int(math.Round(similarity)), source, target, data)
}

// codeData collects an originalData block into a code id to literal map.
func codeData(originalData *etree.Element) map[string]string {
	data := make(map[string]string)
	if originalData == nil {
		return data
	}
	for _, d := range originalData.ChildElements() {
		data[d.SelectAttrValue("id", "")] = d.Text()
	}
	return data
}

func flag(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}
