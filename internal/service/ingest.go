package service

import (
	"alcyxob/course-app/internal/domain"
	"alcyxob/course-app/internal/repository"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// IngestOptions tunes UpsertCourse.
type IngestOptions struct {
	// Prune deletes stored modules, sections and lessons that the document no
	// longer lists. Without it they are kept in place.
	Prune bool
	// DryRun plans and reports without writing.
	DryRun bool
}

// IngestReport summarizes one ingestion.
type IngestReport struct {
	CourseID      string `json:"courseId"`
	CourseCreated bool   `json:"courseCreated"`
	Changed       bool   `json:"changed"`
	DryRun        bool   `json:"dryRun"`
	Revision      int64  `json:"revision"`

	Modules  int `json:"modules"`
	Sections int `json:"sections"`
	Lessons  int `json:"lessons"`

	LessonsCreated   int `json:"lessonsCreated"`
	LessonsUpdated   int `json:"lessonsUpdated"`
	LessonsUnchanged int `json:"lessonsUnchanged"`
	NewMediaRefs     int `json:"newMediaRefs"`
	NewDurations     int `json:"newDurations"`

	OrderingConflicts int `json:"orderingConflicts"`
	PrunedModules     int `json:"prunedModules"`
	PrunedSections    int `json:"prunedSections"`
	PrunedLessons     int `json:"prunedLessons"`

	TotalDuration int `json:"totalDuration"`
}

// DecodeCourseDocument reads a course document from JSON.
func DecodeCourseDocument(r io.Reader) (*domain.CourseDocument, error) {
	var doc domain.CourseDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &doc, nil
}

// orderingConflict records siblings whose order had to be bumped.
type orderingConflict struct {
	Level    repository.EntityKind
	ParentID string
	IDs      []string
}

// ingestPlan is the outcome of merging a document with the stored tree.
type ingestPlan struct {
	Tree      *domain.CourseTree
	Changes   *repository.CourseChangeSet
	Report    *IngestReport
	Conflicts []orderingConflict
}

// checkDocument enforces id uniqueness and explicit parent references.
func checkDocument(doc *domain.CourseDocument) error {
	seen := make(map[string]string)
	claim := func(kind, id string) error {
		if prev, dup := seen[id]; dup {
			return fmt.Errorf("%w: id %q used by both a %s and a %s", ErrInvalidDocument, id, prev, kind)
		}
		seen[id] = kind
		return nil
	}

	if err := claim("course", doc.Course.ID); err != nil {
		return err
	}
	for _, m := range doc.Course.Modules {
		if err := claim("module", m.ID); err != nil {
			return err
		}
		for _, s := range m.Sections {
			if err := claim("section", s.ID); err != nil {
				return err
			}
			if s.ModuleID != "" && s.ModuleID != m.ID {
				return fmt.Errorf("%w: section %q references module %q but is listed under %q",
					ErrDanglingReference, s.ID, s.ModuleID, m.ID)
			}
			for _, l := range s.Lessons {
				if err := claim("lesson", l.ID); err != nil {
					return err
				}
				if l.SectionID != "" && l.SectionID != s.ID {
					return fmt.Errorf("%w: lesson %q references section %q but is listed under %q",
						ErrDanglingReference, l.ID, l.SectionID, s.ID)
				}
				if l.ModuleID != "" && l.ModuleID != m.ID {
					return fmt.Errorf("%w: lesson %q references module %q but is listed under %q",
						ErrDanglingReference, l.ID, l.ModuleID, m.ID)
				}
			}
		}
	}
	return nil
}

// documentIDs lists the ids of each level, for the foreign-course check.
func documentIDs(doc *domain.CourseDocument) (modules, sections, lessons []string) {
	for _, m := range doc.Course.Modules {
		modules = append(modules, m.ID)
		for _, s := range m.Sections {
			sections = append(sections, s.ID)
			for _, l := range s.Lessons {
				lessons = append(lessons, l.ID)
			}
		}
	}
	return modules, sections, lessons
}

// planIngest merges doc into existing (nil for a new course) and computes the
// minimal change set. It performs no I/O.
func planIngest(doc *domain.CourseDocument, existing *domain.CourseTree, opts IngestOptions, now time.Time) *ingestPlan {
	cd := doc.Course
	report := &IngestReport{CourseID: cd.ID, DryRun: opts.DryRun}

	oldModules := map[string]domain.Module{}
	oldSections := map[string]domain.Section{}
	oldLessons := map[string]domain.Lesson{}
	if existing != nil {
		for _, m := range existing.Modules {
			oldModules[m.Module.ID] = m.Module
			for _, s := range m.Sections {
				oldSections[s.Section.ID] = s.Section
				for _, l := range s.Lessons {
					oldLessons[l.ID] = l
				}
			}
		}
	}

	// --- Merge document rows, keyed by parent ---
	docModules := map[string]bool{}
	docSections := map[string]bool{}
	docLessons := map[string]bool{}

	modules := []domain.Module{}
	sectionsByModule := map[string][]domain.Section{}
	lessonsBySection := map[string][]domain.Lesson{}

	for _, md := range cd.Modules {
		docModules[md.ID] = true
		modules = append(modules, domain.Module{
			ID:        md.ID,
			CourseID:  cd.ID,
			Title:     md.Title,
			Order:     md.Order,
			CreatedAt: oldModules[md.ID].CreatedAt,
		})
		for _, sd := range md.Sections {
			docSections[sd.ID] = true
			sectionsByModule[md.ID] = append(sectionsByModule[md.ID], domain.Section{
				ID:        sd.ID,
				ModuleID:  md.ID,
				Title:     sd.Title,
				Order:     sd.Order,
				CreatedAt: oldSections[sd.ID].CreatedAt,
			})
			for i := range sd.Lessons {
				ld := &sd.Lessons[i]
				docLessons[ld.ID] = true
				old, had := oldLessons[ld.ID]
				lesson := domain.Lesson{
					ID:        ld.ID,
					SectionID: sd.ID,
					Title:     ld.Title,
					Kind:      ld.LessonKind(),
					Order:     ld.Order,
					MediaRef:  ld.Media(),
					Duration:  ld.KnownDuration(),
				}
				if had {
					lesson.CreatedAt = old.CreatedAt
					// Absent values keep what is stored.
					if lesson.MediaRef == nil {
						lesson.MediaRef = old.MediaRef
					}
					if lesson.Duration == nil {
						lesson.Duration = old.Duration
					}
				}
				lessonsBySection[sd.ID] = append(lessonsBySection[sd.ID], lesson)
			}
		}
	}

	// --- Stored rows the document no longer lists ---
	var deleteModules, deleteSections, deleteLessons []string
	if existing != nil {
		for _, m := range existing.Modules {
			if !docModules[m.Module.ID] {
				if opts.Prune {
					deleteModules = append(deleteModules, m.Module.ID)
				} else {
					modules = append(modules, m.Module)
				}
			}
			for _, s := range m.Sections {
				if !docSections[s.Section.ID] {
					if opts.Prune {
						deleteSections = append(deleteSections, s.Section.ID)
					} else {
						sectionsByModule[s.Section.ModuleID] = append(sectionsByModule[s.Section.ModuleID], s.Section)
					}
				}
				for _, l := range s.Lessons {
					if !docLessons[l.ID] {
						if opts.Prune {
							deleteLessons = append(deleteLessons, l.ID)
						} else {
							lessonsBySection[l.SectionID] = append(lessonsBySection[l.SectionID], l)
						}
					}
				}
			}
		}
	}
	sort.Strings(deleteModules)
	sort.Strings(deleteSections)
	sort.Strings(deleteLessons)

	// --- Normalize orders and assemble the merged tree ---
	var conflicts []orderingConflict
	note := func(level repository.EntityKind, parentID string, ids []string) {
		if len(ids) > 0 {
			conflicts = append(conflicts, orderingConflict{Level: level, ParentID: parentID, IDs: ids})
			report.OrderingConflicts += len(ids)
		}
	}

	tree := &domain.CourseTree{}
	note(repository.EntityModule, cd.ID, normalizeOrders(len(modules),
		func(i int) (int, string) { return modules[i].Order, modules[i].ID },
		func(i, j int) { modules[i], modules[j] = modules[j], modules[i] },
		func(i, order int) { modules[i].Order = order },
	))
	for _, m := range modules {
		m.CourseID = cd.ID
		node := domain.ModuleNode{Module: m}
		sections := sectionsByModule[m.ID]
		note(repository.EntitySection, m.ID, normalizeOrders(len(sections),
			func(i int) (int, string) { return sections[i].Order, sections[i].ID },
			func(i, j int) { sections[i], sections[j] = sections[j], sections[i] },
			func(i, order int) { sections[i].Order = order },
		))
		for _, s := range sections {
			s.ModuleID = m.ID
			s.CourseID = cd.ID
			sn := domain.SectionNode{Section: s}
			lessons := lessonsBySection[s.ID]
			note(repository.EntityLesson, s.ID, normalizeOrders(len(lessons),
				func(i int) (int, string) { return lessons[i].Order, lessons[i].ID },
				func(i, j int) { lessons[i], lessons[j] = lessons[j], lessons[i] },
				func(i, order int) { lessons[i].Order = order },
			))
			for _, l := range lessons {
				l.SectionID = s.ID
				l.ModuleID = m.ID
				l.CourseID = cd.ID
				sn.Lessons = append(sn.Lessons, l)
			}
			node.Sections = append(node.Sections, sn)
		}
		tree.Modules = append(tree.Modules, node)
	}

	// --- Course row, rollups and sequence pointers ---
	tree.Course = domain.Course{
		ID:          cd.ID,
		Acronym:     cd.Acronym,
		Title:       cd.Title,
		Description: cd.Description,
		Thumbnail:   cd.Thumbnail,
		TotalVideos: cd.TotalVideos,
	}
	if existing != nil {
		tree.Course.CreatedAt = existing.Course.CreatedAt
		tree.Course.UpdatedAt = existing.Course.UpdatedAt
		tree.Course.Revision = existing.Course.Revision
	}
	ApplyRollups(tree)
	linkSequence(tree)

	// --- Diff against the stored rows ---
	cs := &repository.CourseChangeSet{
		IsNew:            existing == nil,
		DeleteModuleIDs:  deleteModules,
		DeleteSectionIDs: deleteSections,
		DeleteLessonIDs:  deleteLessons,
	}
	if existing != nil {
		cs.ExpectedRevision = existing.Course.Revision
	}

	for mi := range tree.Modules {
		m := &tree.Modules[mi].Module
		old, had := oldModules[m.ID]
		switch {
		case !had:
			m.CreatedAt, m.UpdatedAt = now, now
			cs.Modules = append(cs.Modules, *m)
		case !sameModule(old, *m):
			m.UpdatedAt = now
			cs.Modules = append(cs.Modules, *m)
			if old.Order != m.Order {
				cs.ParkModuleIDs = append(cs.ParkModuleIDs, m.ID)
			}
		default:
			m.UpdatedAt = old.UpdatedAt
		}
		for si := range tree.Modules[mi].Sections {
			sn := &tree.Modules[mi].Sections[si]
			s := &sn.Section
			old, had := oldSections[s.ID]
			switch {
			case !had:
				s.CreatedAt, s.UpdatedAt = now, now
				cs.Sections = append(cs.Sections, *s)
			case !sameSection(old, *s):
				s.UpdatedAt = now
				cs.Sections = append(cs.Sections, *s)
				if old.Order != s.Order || old.ModuleID != s.ModuleID {
					cs.ParkSectionIDs = append(cs.ParkSectionIDs, s.ID)
				}
			default:
				s.UpdatedAt = old.UpdatedAt
			}
			for li := range sn.Lessons {
				l := &sn.Lessons[li]
				old, had := oldLessons[l.ID]
				if l.HasMedia() && (!had || !old.HasMedia()) {
					report.NewMediaRefs++
				}
				if l.Duration != nil && (!had || old.Duration == nil) {
					report.NewDurations++
				}
				switch {
				case !had:
					l.CreatedAt, l.UpdatedAt = now, now
					cs.Lessons = append(cs.Lessons, *l)
					report.LessonsCreated++
				case !sameLesson(old, *l):
					l.UpdatedAt = now
					cs.Lessons = append(cs.Lessons, *l)
					report.LessonsUpdated++
					if old.Order != l.Order || old.SectionID != l.SectionID {
						cs.ParkLessonIDs = append(cs.ParkLessonIDs, l.ID)
					}
				default:
					l.UpdatedAt = old.UpdatedAt
					report.LessonsUnchanged++
				}
			}
		}
	}

	courseChanged := existing == nil || !sameCourse(existing.Course, tree.Course)
	report.Changed = courseChanged ||
		len(cs.Modules)+len(cs.Sections)+len(cs.Lessons) > 0 ||
		len(deleteModules)+len(deleteSections)+len(deleteLessons) > 0
	if report.Changed {
		if existing == nil {
			tree.Course.CreatedAt = now
		}
		tree.Course.UpdatedAt = now
		tree.Course.Revision++
	}
	cs.Course = tree.Course

	report.CourseCreated = existing == nil
	report.Revision = tree.Course.Revision
	report.Modules = len(tree.Modules)
	report.Sections = tree.SectionCount()
	report.Lessons = tree.LessonCount()
	report.PrunedModules = len(deleteModules)
	report.PrunedSections = len(deleteSections)
	report.PrunedLessons = len(deleteLessons)
	report.TotalDuration = tree.Course.TotalDuration

	return &ingestPlan{Tree: tree, Changes: cs, Report: report, Conflicts: conflicts}
}

// normalizeOrders stable-sorts n siblings by (order, id) and bumps every order
// that does not exceed its predecessor to predecessor+1. It returns the ids
// that were bumped.
func normalizeOrders(n int, key func(i int) (int, string), swap func(i, j int), set func(i, order int)) []string {
	sort.Stable(siblings{n: n, key: key, swap: swap})
	var bumped []string
	for i := 1; i < n; i++ {
		prev, _ := key(i - 1)
		order, id := key(i)
		if order <= prev {
			set(i, prev+1)
			bumped = append(bumped, id)
		}
	}
	return bumped
}

type siblings struct {
	n    int
	key  func(i int) (int, string)
	swap func(i, j int)
}

func (s siblings) Len() int      { return s.n }
func (s siblings) Swap(i, j int) { s.swap(i, j) }
func (s siblings) Less(i, j int) bool {
	oi, idi := s.key(i)
	oj, idj := s.key(j)
	if oi != oj {
		return oi < oj
	}
	return idi < idj
}

// linkSequence writes next/prev pointers in sequence order.
func linkSequence(tree *domain.CourseTree) {
	var refs []*domain.Lesson
	for mi := range tree.Modules {
		for si := range tree.Modules[mi].Sections {
			lessons := tree.Modules[mi].Sections[si].Lessons
			for li := range lessons {
				refs = append(refs, &lessons[li])
			}
		}
	}
	for i, l := range refs {
		l.PrevLessonID, l.NextLessonID = nil, nil
		if i > 0 {
			id := refs[i-1].ID
			l.PrevLessonID = &id
		}
		if i+1 < len(refs) {
			id := refs[i+1].ID
			l.NextLessonID = &id
		}
	}
}

// --- Content comparison, timestamps excluded ---

func sameCourse(a, b domain.Course) bool {
	return a.Acronym == b.Acronym &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		a.Thumbnail == b.Thumbnail &&
		a.TotalVideos == b.TotalVideos &&
		a.TotalDuration == b.TotalDuration
}

func sameModule(a, b domain.Module) bool {
	return a.CourseID == b.CourseID &&
		a.Title == b.Title &&
		a.Order == b.Order &&
		a.TotalDuration == b.TotalDuration
}

func sameSection(a, b domain.Section) bool {
	return a.ModuleID == b.ModuleID &&
		a.CourseID == b.CourseID &&
		a.Title == b.Title &&
		a.Order == b.Order &&
		a.TotalDuration == b.TotalDuration
}

func sameLesson(a, b domain.Lesson) bool {
	return a.SectionID == b.SectionID &&
		a.ModuleID == b.ModuleID &&
		a.CourseID == b.CourseID &&
		a.Title == b.Title &&
		a.Kind == b.Kind &&
		a.Order == b.Order &&
		equalString(a.MediaRef, b.MediaRef) &&
		equalInt(a.Duration, b.Duration) &&
		equalString(a.NextLessonID, b.NextLessonID) &&
		equalString(a.PrevLessonID, b.PrevLessonID)
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
