package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadCSV 从 Reader 加载数据集
// 所有单元格按字符串读入，空串记为缺失值；数值解析延迟到取用时
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header failed: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	ds := New(columns)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record failed: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if i >= len(record) {
				row[col] = Missing()
				continue
			}
			cell := record[i]
			if strings.TrimSpace(cell) == "" {
				row[col] = Missing()
			} else {
				row[col] = String(cell)
			}
		}
		ds.AppendRow(row)
	}

	return ds, nil
}

// ReadCSVFile 从文件加载数据集
func ReadCSVFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file failed: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// WriteCSV 写出数据集（UTF-8，首行为列名，缺失值写为空串）
func (d *Dataset) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(d.Columns); err != nil {
		return fmt.Errorf("write csv header failed: %w", err)
	}

	record := make([]string, len(d.Columns))
	for i := range d.Rows {
		for j, col := range d.Columns {
			record[j] = d.Get(i, col).AsString()
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record failed: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
