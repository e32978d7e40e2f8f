package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"github.com/seglab/xliffcat/internal/xliff"
)

const matchesNamespace = "urn:oasis:names:tc:xliff:matches:2.0"

// SaveXliff writes the in-memory tree, with its back-filled ids, over the
// original document.
func (s *Store) SaveXliff() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeIndented(s.document, s.xliffFile)
}

// UpdateXliff overwrites every segment's target and state from the store,
// injects a matches block per unit, and writes the result back in place.
func (s *Store) UpdateXliff() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.rebuild()
	if err != nil {
		return err
	}
	if err := writeIndented(doc, s.xliffFile); err != nil {
		return err
	}
	s.document = doc
	return nil
}

// ExportXliff runs the update pass and writes the rebuilt document to
// output as well.
func (s *Store) ExportXliff(output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.rebuild()
	if err != nil {
		return err
	}
	if err := writeIndented(doc, s.xliffFile); err != nil {
		return err
	}
	s.document = doc
	return writeIndented(doc, output)
}

// ExportTranslations runs the update pass, then merges the document against
// its skeleton to produce output in the original native format. A non-zero
// merge status is a hard failure carrying the collaborator's diagnostic.
func (s *Store) ExportTranslations(output string) error {
	if s.merger == nil {
		return errors.New("no merger configured")
	}
	if err := s.UpdateXliff(); err != nil {
		return err
	}
	status, message := s.merger.Merge(s.xliffFile, output, s.cfg.Catalog, s.cfg.AcceptUnconfirmed)
	if status != 0 {
		return fmt.Errorf("merge translations: %s", message)
	}
	return nil
}

func (s *Store) rebuild() (*etree.Document, error) {
	// The in-memory tree carries segment ids back-filled at import, which
	// the file on disk may lack.
	doc := s.document.Copy()
	root := doc.Root()
	if root == nil {
		return nil, errors.New("document has no root element")
	}
	root.CreateAttr("xmlns:mtc", matchesNamespace)

	for _, f := range root.SelectElements("file") {
		file := f.SelectAttrValue("id", "")
		if err := s.rebuildElement(f, file, ""); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (s *Store) rebuildElement(e *etree.Element, file, unit string) error {
	for _, child := range e.ChildElements() {
		switch child.Tag {
		case "unit":
			unitID := child.SelectAttrValue("id", "")
			matches, err := s.unitMatchesElement(file, unitID)
			if err != nil {
				return err
			}
			if matches != nil {
				if old := child.SelectElement("mtc:matches"); old != nil {
					child.RemoveChild(old)
				}
				child.InsertChildAt(0, matches)
			}
			if err := s.rebuildElement(child, file, unitID); err != nil {
				return err
			}
		case "segment", "ignorable":
			if err := s.rebuildSegment(child, file, unit); err != nil {
				return err
			}
		default:
			if err := s.rebuildElement(child, file, unit); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) rebuildSegment(e *etree.Element, file, unit string) error {
	id := e.SelectAttrValue("id", "")
	var tgt, state string
	err := s.db.QueryRow("SELECT target, state FROM segments WHERE file=? AND unitId=? AND segId=?",
		file, unit, id).Scan(&tgt, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get target: %w", err)
	}
	target := e.SelectElement("target")
	if target == nil {
		target = e.CreateElement("target")
		target.CreateAttr("xml:lang", s.tgtLang)
	}
	updated, err := xliff.Parse(tgt)
	if err != nil {
		return fmt.Errorf("parse stored target: %w", err)
	}
	setContent(target, updated)
	if e.Tag == "segment" {
		e.CreateAttr("state", state)
	}
	return nil
}

// unitMatchesElement builds the mtc:matches block for one unit, ordered by
// segment then similarity descending. Returns nil when the unit has none.
func (s *Store) unitMatchesElement(file, unit string) (*etree.Element, error) {
	rows, err := s.db.Query(`SELECT segId, matchId, origin, type, similarity, source, target
		FROM matches WHERE file=? AND unitId=? ORDER BY segId, similarity DESC`, file, unit)
	if err != nil {
		return nil, fmt.Errorf("unit matches: %w", err)
	}
	defer rows.Close()

	matches := etree.NewElement("mtc:matches")
	for rows.Next() {
		var seg, id, origin, mtype, src, tgt string
		var similarity int
		if err := rows.Scan(&seg, &id, &origin, &mtype, &similarity, &src, &tgt); err != nil {
			return nil, fmt.Errorf("scan unit match: %w", err)
		}
		m := matches.CreateElement("mtc:match")
		m.CreateAttr("ref", seg)
		m.CreateAttr("id", id)
		m.CreateAttr("origin", origin)
		m.CreateAttr("type", mtype)
		m.CreateAttr("similarity", strconv.Itoa(similarity))
		source, err := xliff.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse match source: %w", err)
		}
		m.AddChild(source)
		target, err := xliff.Parse(tgt)
		if err != nil {
			return nil, fmt.Errorf("parse match target: %w", err)
		}
		m.AddChild(target)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(matches.ChildElements()) == 0 {
		return nil, nil
	}
	return matches, nil
}

func writeIndented(doc *etree.Document, path string) error {
	settings := etree.NewIndentSettings()
	settings.Spaces = 2
	settings.PreserveLeafWhitespace = true
	doc.IndentWithSettings(settings)
	if err := doc.WriteToFile(path); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
