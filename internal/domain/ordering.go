package domain

import "sort"

// SortTree orders every level of the tree by (order, id). The id tiebreak keeps
// the result deterministic even when stored orders collide.
func SortTree(t *CourseTree) {
	if t == nil {
		return
	}
	sort.SliceStable(t.Modules, func(i, j int) bool {
		return lessByOrder(t.Modules[i].Module.Order, t.Modules[i].Module.ID, t.Modules[j].Module.Order, t.Modules[j].Module.ID)
	})
	for mi := range t.Modules {
		sections := t.Modules[mi].Sections
		sort.SliceStable(sections, func(i, j int) bool {
			return lessByOrder(sections[i].Section.Order, sections[i].Section.ID, sections[j].Section.Order, sections[j].Section.ID)
		})
		for si := range sections {
			lessons := sections[si].Lessons
			sort.SliceStable(lessons, func(i, j int) bool {
				return lessByOrder(lessons[i].Order, lessons[i].ID, lessons[j].Order, lessons[j].ID)
			})
		}
	}
}

func lessByOrder(orderA int, idA string, orderB int, idB string) bool {
	if orderA != orderB {
		return orderA < orderB
	}
	return idA < idB
}
