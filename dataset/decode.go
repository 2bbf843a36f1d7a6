package dataset

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

const (
	featuresField = "features"
	labelField    = "type"
)

// DecodeRecords drains cursor into Records and closes it.
//
// features は double/int32/int64 の配列、type は文字列でなければならない。
// 欠損や型違いは読み飛ばさずに SchemaError を返す。
func DecodeRecords(ctx context.Context, cursor *mongo.Cursor) (records []Record, err error) {
	defer func() {
		if cerr := cursor.Close(ctx); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close cursor")
		}
	}()

	for i := 0; cursor.Next(ctx); i++ {
		rec, err := decodeRecord(i, cursor.Current)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate documents")
	}
	return records, nil
}

func decodeRecord(doc int, raw bson.Raw) (Record, error) {
	fv, err := raw.LookupErr(featuresField)
	if err != nil {
		return Record{}, errors.NewSchemaError(doc, featuresField, "missing")
	}
	arr, ok := fv.ArrayOK()
	if !ok {
		return Record{}, errors.NewSchemaError(doc, featuresField, fmt.Sprintf("expected array, got %s", fv.Type))
	}
	values, err := arr.Values()
	if err != nil {
		return Record{}, errors.NewSchemaError(doc, featuresField, err.Error())
	}

	features := make([]float64, len(values))
	for j, v := range values {
		f, ok := numeric(v)
		if !ok {
			return Record{}, errors.NewSchemaError(doc, fmt.Sprintf("%s.%d", featuresField, j), fmt.Sprintf("expected number, got %s", v.Type))
		}
		features[j] = f
	}

	lv, err := raw.LookupErr(labelField)
	if err != nil {
		return Record{}, errors.NewSchemaError(doc, labelField, "missing")
	}
	label, ok := lv.StringValueOK()
	if !ok {
		return Record{}, errors.NewSchemaError(doc, labelField, fmt.Sprintf("expected string, got %s", lv.Type))
	}

	return Record{Features: features, Label: label}, nil
}

func numeric(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bson.TypeDouble:
		return v.Double(), true
	case bson.TypeInt32:
		return float64(v.Int32()), true
	case bson.TypeInt64:
		return float64(v.Int64()), true
	default:
		return 0, false
	}
}
