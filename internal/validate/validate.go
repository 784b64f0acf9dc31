// Package validate 字段校验，服务端与客户端共用同一套规则
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/user/moviecatalog/internal/model"
)

const (
	MinReleaseYear = 1900
	MaxNotesLength = 300
)

// Now 当前时间，测试中可替换
var Now = time.Now

var (
	numericTitleRX  = regexp.MustCompile(`^-?\d+$`)
	negativeTitleRX = regexp.MustCompile(`^-\d`)
)

var v = newValidator()

// Errors 字段名 -> 错误信息
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Movie 规范化并校验创建/更新请求
func Movie(in *model.MovieInput) error {
	in.Normalize()
	return Struct(in)
}

// Rating 校验评分请求
func Rating(in *model.RatingInput) error {
	return Struct(in)
}

// Struct 按 validate 标签校验，失败时返回 Errors
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = messageFor(fe)
	}
	return out
}

// CurrentYear 允许的最大上映年份
func CurrentYear() int {
	return Now().Year()
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// 错误中使用 json 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "not_numeric", func(fl validator.FieldLevel) bool {
		return !numericTitleRX.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "no_negative_prefix", func(fl validator.FieldLevel) bool {
		return !negativeTitleRX.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	mustRegister(v, "genre", func(fl validator.FieldLevel) bool {
		return model.IsKnownGenre(fl.Field().String())
	})
	mustRegister(v, "release_year", func(fl validator.FieldLevel) bool {
		year := fl.Field().Int()
		return year >= MinReleaseYear && year <= int64(CurrentYear())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Field() {
	case "title":
		switch fe.Tag() {
		case "not_numeric":
			return "Title cannot contain only numbers."
		case "no_negative_prefix":
			return "Title cannot start with a negative number."
		}
		return "Title is required."
	case "genre":
		if fe.Tag() == "genre" {
			return "Genre must be one of " + strings.Join(model.Genres, ", ") + "."
		}
		return "Genre is required."
	case "release_year":
		if fe.Tag() == "required" {
			return "Release year is required."
		}
		return fmt.Sprintf("Year must be between %d and %d.", MinReleaseYear, CurrentYear())
	case "notes":
		return fmt.Sprintf("Notes must be max %d characters.", MaxNotesLength)
	case "rating":
		return "Rating must be a number between 0 and 5."
	case "version":
		return "Version must not be negative."
	}
	return fe.Error()
}
