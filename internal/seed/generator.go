package seed

import (
	"math/rand/v2"
	"strconv"

	"github.com/okian/huikao/internal/domain/grade"
	"github.com/okian/huikao/internal/domain/model"
	"github.com/okian/huikao/internal/domain/stats"
)

// DefaultSchools is the school pool used when none is configured.
var DefaultSchools = []string{ //nolint:gochecknoglobals // fixed table
	"建國中學", "北一女中", "師大附中", "成功高中", "中山女高",
	"台中一中", "台中女中", "台南一中", "台南女中", "高雄中學",
}

// Regions is the region pool of generated entries.
var Regions = []string{"北區", "中區", "南區", "東區", "離島"} //nolint:gochecknoglobals // fixed table

// generalShare is the chance, in percent, that an entry is on the general track.
const generalShare = 70

// Generator produces valid entries from a seeded source.
type Generator struct {
	rnd     *rand.Rand
	schools []string
	years   []string
	nextID  int64
}

// NewGenerator returns a generator whose ids start at firstID.
func NewGenerator(seed uint64, firstID int64, schools []string) *Generator {
	if len(schools) == 0 {
		schools = DefaultSchools
	}
	return &Generator{
		rnd:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		schools: schools,
		years:   stats.DefaultTrendYears,
		nextID:  firstID,
	}
}

// Generate returns n entries with consecutive ids. Earlier schools in the
// pool are drawn more often so the popularity ranking is well defined.
func (g *Generator) Generate(n int) []model.Entry {
	out := make([]model.Entry, n)
	for i := range out {
		out[i] = g.next()
	}
	return out
}

func (g *Generator) next() model.Entry {
	e := model.Entry{
		ID:          g.nextID,
		Year:        g.years[g.rnd.IntN(len(g.years))],
		School:      g.schools[g.skewed(len(g.schools))],
		Department:  model.DefaultDepartment,
		Region:      Regions[g.rnd.IntN(len(Regions))],
		Composition: model.Composition(g.rnd.IntN(7)),
		Comment:     "seed #" + strconv.FormatInt(g.nextID, 10),
	}
	g.nextID++
	if g.rnd.IntN(100) >= generalShare {
		group := model.DepartmentGroups[1+g.rnd.IntN(len(model.DepartmentGroups)-1)]
		e.Department = group.Departments[g.rnd.IntN(len(group.Departments))]
	}
	for _, s := range grade.Subjects {
		e.Scores.Set(s, grade.Grades[g.skewed(len(grade.Grades))])
	}
	return e
}

// skewed returns an index in [0,n) biased towards 0.
func (g *Generator) skewed(n int) int {
	return min(g.rnd.IntN(n), g.rnd.IntN(n))
}
