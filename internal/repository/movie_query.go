package repository

import (
	"strings"

	"github.com/user/moviecatalog/internal/model"
	"gorm.io/gorm"
)

// predicate 一个 WHERE 条件及其绑定参数，多个条件之间为 AND
type predicate struct {
	clause string
	args   []any
}

// 标题或类型包含关键词（不区分大小写）
const searchClause = `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(genre) LIKE ? ESCAPE '\')`

// 数字开头的标题排在最后，与升降序无关
const digitFirstRank = `CASE WHEN SUBSTR(title, 1, 1) BETWEEN '0' AND '9' THEN 1 ELSE 0 END`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern 构造子串匹配的 LIKE 模式，转义通配符
func containsPattern(keyword string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(keyword)) + "%"
}

func moviePredicates(q model.MovieQuery) []predicate {
	var preds []predicate

	if q.Q != "" {
		pattern := containsPattern(q.Q)
		preds = append(preds, predicate{clause: searchClause, args: []any{pattern, pattern}})
	}
	if q.Genre != "" {
		preds = append(preds, predicate{clause: "genre = ?", args: []any{q.Genre}})
	}
	if q.Year != 0 {
		preds = append(preds, predicate{clause: "release_year = ?", args: []any{q.Year}})
	}

	return preds
}

// movieOrder 返回 ORDER BY 表达式，id 作为最终排序依据保证结果稳定
func movieOrder(sort model.MovieSort) string {
	switch sort {
	case model.SortTitleAsc:
		return digitFirstRank + ", title ASC, id ASC"
	case model.SortTitleDesc:
		return digitFirstRank + ", title DESC, id ASC"
	case model.SortYearAsc:
		return "release_year ASC, id ASC"
	case model.SortYearDesc:
		return "release_year DESC, id ASC"
	default:
		return "id ASC"
	}
}

// applyMovieQuery 将查询参数应用到 gorm 查询上
func applyMovieQuery(tx *gorm.DB, q model.MovieQuery) *gorm.DB {
	for _, p := range moviePredicates(q) {
		tx = tx.Where(p.clause, p.args...)
	}
	return tx.Order(movieOrder(q.Sort))
}
