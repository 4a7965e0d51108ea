package recordstore

import (
	"context"
	"encoding/base64"
	"slices"
	"strings"

	"github.com/fomet/fomet/internal/po"
)

// Backend action names.
const (
	ActionLogin           = "login"
	ActionGetPOData       = "getPOData"
	ActionTariffOptions   = "getTarifOptions"
	ActionTariffData      = "getTarifData"
	ActionMeterModels     = "getDataKWH"
	ActionSaveRecords     = "tambahDataPOMulti"
	ActionDeleteRecord    = "hapusDataPO"
	ActionMarkDone        = "ubahStatus"
	ActionUploadFile      = "uploadFile"
	invalidLoginMessage   = "Unit atau password salah"
	uploadMissingURLError = "URL file tidak ditemukan pada response upload"
)

// RecordPayload is one record as submitted to tambahDataPOMulti.
type RecordPayload struct {
	Date       string `json:"tanggal"`
	Unit       string `json:"unit"`
	Requester  string `json:"pemohon"`
	CustomerID string `json:"idpel"`
	Name       string `json:"nama"`
	Tariff     string `json:"tarif"`
	Power      string `json:"daya"`
	Brand      string `json:"merk"`
	Type       string `json:"type"`
	Serial     string `json:"sn"`
	FileURL    string `json:"fileUrl"`
	Purpose    string `json:"peruntukan"`
	Status     string `json:"status"`
	ErrorMeter string `json:"errorMeter"`
	RowNumber  *int   `json:"rowNumber,omitempty"`
}

// Login authenticates against the backend and returns the login mapping.
// The mapping is taken from data, else result, else the body itself.
func (c *Client) Login(ctx context.Context, username, password string) (map[string]any, error) {
	resp, err := c.Call(ctx, ActionLogin, map[string]any{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	data, ok := resp.Data().(map[string]any)
	if !ok || !truthy(data["success"]) {
		return nil, &BusinessRejection{Action: ActionLogin, Message: invalidLoginMessage}
	}
	return data, nil
}

// FetchRecords loads the record table, newest first.
func (c *Client) FetchRecords(ctx context.Context, role po.RoleContext) ([]po.Record, error) {
	resp, err := c.Call(ctx, ActionGetPOData, map[string]any{
		"unit": role.Unit,
		"role": role.Role,
	})
	if err != nil {
		return nil, err
	}
	records := po.ParseRows(resp.Rows())
	slices.Reverse(records)
	return records, nil
}

// TariffOptions loads the unit/tariff/power selectors.
func (c *Client) TariffOptions(ctx context.Context) (po.TariffOptions, error) {
	resp, err := c.Call(ctx, ActionTariffOptions, nil)
	if err != nil {
		return po.TariffOptions{}, err
	}
	obj, _ := resp.Data().(map[string]any)
	return po.TariffOptions{
		Units:   stringList(obj["units"]),
		Tariffs: stringList(obj["tarifs"]),
		Powers:  stringList(obj["dayas"]),
	}, nil
}

// TariffData loads the raw tariff sheet.
func (c *Client) TariffData(ctx context.Context) ([]po.TariffRow, error) {
	resp, err := c.Call(ctx, ActionTariffData, nil)
	if err != nil {
		return nil, err
	}
	return po.ParseTariffRows(resp.Rows()), nil
}

// MeterModels loads the brand/type catalogue.
func (c *Client) MeterModels(ctx context.Context) ([]po.MeterModel, error) {
	resp, err := c.Call(ctx, ActionMeterModels, nil)
	if err != nil {
		return nil, err
	}
	items := resp.Array()
	out := make([]po.MeterModel, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			out = append(out, po.MeterModel{Brand: po.CellString(v["merk"]), Type: po.CellString(v["type"])})
		case []any:
			m := po.MeterModel{}
			if len(v) > 0 {
				m.Brand = po.CellString(v[0])
			}
			if len(v) > 1 {
				m.Type = po.CellString(v[1])
			}
			out = append(out, m)
		}
	}
	return out, nil
}

// SaveRecords submits every record in a single call.
func (c *Client) SaveRecords(ctx context.Context, records []RecordPayload) error {
	_, err := c.Call(ctx, ActionSaveRecords, map[string]any{"data": records})
	return err
}

// DeleteRecord removes the record stored at row.
func (c *Client) DeleteRecord(ctx context.Context, row int, role string) error {
	_, err := c.Call(ctx, ActionDeleteRecord, map[string]any{
		"rowIndex":  row,
		"roleLogin": role,
	})
	return err
}

// MarkDone sets the record stored at row to Sudah.
func (c *Client) MarkDone(ctx context.Context, row int) error {
	_, err := c.Call(ctx, ActionMarkDone, map[string]any{"rowNumber": row})
	return err
}

// UploadFile stores an attachment and returns its public URL.
func (c *Client) UploadFile(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	resp, err := c.Call(ctx, ActionUploadFile, map[string]any{
		"filename": filename,
		"mimeType": mimeType,
		"data":     base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return "", err
	}
	if url := uploadURL(resp); url != "" {
		return url, nil
	}
	return "", &MalformedResponse{Action: ActionUploadFile, Raw: preview(resp.Raw()), Err: errString(uploadMissingURLError)}
}

func uploadURL(resp Response) string {
	switch v := resp.Data().(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		for _, key := range []string{"url", "fileUrl", "link"} {
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := po.CellString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type errString string

func (e errString) Error() string { return string(e) }
