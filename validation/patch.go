package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/utils"
)

// Kind names an entity for partial-update checks. Values match the
// collection names.
type Kind string

const (
	KindUser              Kind = "User"
	KindCompetition       Kind = "Competition"
	KindParticipation     Kind = "Participation"
	KindTeam              Kind = "Team"
	KindPlayer            Kind = "Player"
	KindMatch             Kind = "Match"
	KindGroup             Kind = "Group"
	KindNotification      Kind = "Notification"
	KindAccount           Kind = "Account"
	KindSession           Kind = "Session"
	KindVerificationToken Kind = "VerificationToken"
)

// MetaKeys are never accepted from a patch.
var MetaKeys = []string{"_id", "id", "createdAt", "updatedAt"}

var immutableKeys = map[Kind][]string{
	KindCompetition:   {"uniqueCode", "organizerId"},
	KindParticipation: {"competitionId", "participantId"},
	KindTeam:          {"competitionId"},
	KindMatch:         {"competitionId"},
	KindGroup:         {"competitionId"},
	KindNotification:  {"userId"},
	KindAccount:       {"userId"},
	KindSession:       {"userId"},
}

type valueKind int

const (
	valueString valueKind = iota
	valueBool
	valueInt
	valueFloat
	valueDate
	valueObjectID
	valueMap
	valueOther
)

type fieldSpec struct {
	kind     valueKind
	required bool
	nullable bool
	rule     string
}

var schemas = map[Kind]map[string]fieldSpec{
	KindUser:              describe(models.User{}),
	KindCompetition:       describe(models.Competition{}),
	KindParticipation:     describe(models.Participation{}),
	KindTeam:              describe(models.Team{}),
	KindPlayer:            describe(models.Player{}),
	KindMatch:             describe(models.Match{}),
	KindGroup:             describe(models.Group{}),
	KindNotification:      describe(models.Notification{}),
	KindAccount:           describe(models.Account{}),
	KindSession:           describe(models.Session{}),
	KindVerificationToken: describe(models.VerificationToken{}),
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	objectIDType = reflect.TypeOf(primitive.ObjectID{})
)

// describe derives the patch schema of an entity from its bson and validate tags.
func describe(entity any) map[string]fieldSpec {
	specs := make(map[string]fieldSpec)
	t := reflect.TypeOf(entity)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			continue
		}
		name := strings.SplitN(f.Tag.Get("bson"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}

		ft := f.Type
		spec := fieldSpec{}
		if ft.Kind() == reflect.Ptr {
			spec.nullable = true
			ft = ft.Elem()
		}
		switch {
		case ft == timeType:
			spec.kind = valueDate
		case ft == objectIDType:
			spec.kind = valueObjectID
		case ft.Kind() == reflect.String:
			spec.kind = valueString
		case ft.Kind() == reflect.Bool:
			spec.kind = valueBool
		case ft.Kind() == reflect.Int || ft.Kind() == reflect.Int64 || ft.Kind() == reflect.Int32:
			spec.kind = valueInt
		case ft.Kind() == reflect.Float64 || ft.Kind() == reflect.Float32:
			spec.kind = valueFloat
		case ft.Kind() == reflect.Map:
			spec.kind = valueMap
			spec.nullable = true
		default:
			spec.kind = valueOther
		}

		var rules []string
		for _, token := range strings.Split(f.Tag.Get("validate"), ",") {
			switch {
			case token == "":
			case token == "required":
				spec.required = true
			case token == "omitempty", strings.HasPrefix(token, "required_with"):
			default:
				rules = append(rules, token)
			}
		}
		spec.rule = strings.Join(rules, ",")
		specs[name] = spec
	}
	return specs
}

// Patch checks and coerces a partial update in place. Meta keys are removed,
// unknown and immutable keys are rejected, required keys cannot be cleared,
// dates and references are converted to their stored types. A cleared
// optional key is left as nil for the caller to unset.
func Patch(kind Kind, patch bson.M) error {
	schema, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("validation: unknown entity kind %q", kind)
	}
	for _, key := range MetaKeys {
		delete(patch, key)
	}

	ve := newError(string(kind))
	keys := make([]string, 0, len(patch))
	for key := range patch {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		spec, known := schema[key]
		if !known {
			ve.invalid(key, nil, "unknown field")
			continue
		}
		if isImmutable(kind, key) {
			ve.invalid(key, nil, "immutable")
			continue
		}

		raw := patch[key]
		if isEmpty(raw) {
			switch {
			case spec.required:
				ve.missing(key)
			case spec.nullable:
				patch[key] = nil
			default:
				ve.invalid(key, nil, "cannot be null")
			}
			continue
		}

		value, err := coerce(spec.kind, raw)
		if err != nil {
			ve.invalid(key, raw, err.Error())
			continue
		}
		if kind == KindUser && key == "email" {
			value = utils.NormalizeEmail(value.(string))
		}
		if spec.rule != "" {
			if err := instance().Var(value, spec.rule); err != nil {
				ve.invalid(key, raw, spec.rule)
				continue
			}
		}
		patch[key] = value
	}
	return ve.orNil()
}

func isImmutable(kind Kind, key string) bool {
	for _, k := range immutableKeys[kind] {
		if k == key {
			return true
		}
	}
	return false
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case *string:
		return val == nil || strings.TrimSpace(*val) == ""
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func coerce(kind valueKind, v any) (any, error) {
	switch kind {
	case valueDate:
		t, err := models.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("date")
		}
		return t, nil
	case valueObjectID:
		return toObjectID(v)
	case valueInt:
		n, ok := toInt(v)
		if !ok {
			return nil, fmt.Errorf("integer")
		}
		return n, nil
	case valueFloat:
		f, ok := toFloat(v)
		if !ok {
			return nil, fmt.Errorf("number")
		}
		return f, nil
	case valueString:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr {
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.String {
			return nil, fmt.Errorf("string")
		}
		return strings.TrimSpace(rv.String()), nil
	case valueBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("boolean")
		}
		return b, nil
	case valueMap:
		if reflect.ValueOf(v).Kind() != reflect.Map {
			return nil, fmt.Errorf("object")
		}
		return v, nil
	}
	return v, nil
}

func toObjectID(v any) (primitive.ObjectID, error) {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id, nil
	case *primitive.ObjectID:
		return *id, nil
	case string:
		oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
		if err != nil {
			return primitive.NilObjectID, fmt.Errorf("objectid")
		}
		return oid, nil
	}
	return primitive.NilObjectID, fmt.Errorf("objectid")
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case *int:
		return *n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case *float64:
		return *n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
