// Package legacy manages the locally persisted client, project and user
// collections kept under the clientes, proyectos and usuarios keys.
package legacy

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
)

const (
	KeyClients  = "clientes"
	KeyProjects = "proyectos"
	KeyUsers    = "usuarios"

	DefaultStage = "contacto inicial"
	DefaultRole  = "consultor"
)

// Stages lists the sales stages a project may be in.
var Stages = []string{"contacto inicial", "propuesta enviada", "negociación", "estado positivo", "estado negativo"}

// ID is a record identifier. Older records stored numeric timestamps, so
// numbers are accepted on decode and kept in their decimal form.
type ID string

func NewID() ID { return ID(uuid.NewString()) }

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

type Client struct {
	ID        ID     `json:"id,omitempty"`
	Nombre    string `json:"nombre"`
	Empresa   string `json:"empresa"`
	Correo    string `json:"correo"`
	Telefono  string `json:"telefono"`
	Direccion string `json:"direccion"`
}

type Observation struct {
	ID    ID     `json:"id"`
	Texto string `json:"texto"`
	Fecha string `json:"fecha"`
}

// Project.ClientID is always serialized, as null when unlinked.
type Project struct {
	ID            ID            `json:"id,omitempty"`
	Nombre        string        `json:"nombre"`
	Valor         float64       `json:"valor"`
	Etapa         string        `json:"etapa"`
	ClientID      *ID           `json:"clientId"`
	CreatedAt     string        `json:"createdAt,omitempty"`
	Observaciones []Observation `json:"observaciones,omitempty"`
}

type User struct {
	ID     ID     `json:"id,omitempty"`
	Nombre string `json:"nombre"`
	Correo string `json:"correo"`
	Rol    string `json:"rol"`
}

func (c *Client) recordID() *ID  { return &c.ID }
func (p *Project) recordID() *ID { return &p.ID }
func (u *User) recordID() *ID    { return &u.ID }
