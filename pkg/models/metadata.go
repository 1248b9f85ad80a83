package models

const (
	MetadataExternalID  = "magento_id"        // 目标实体回指 Magento 实体的 id
	MetadataValueCode   = "magento_value"     // 选项值对应的 Magento 选项编码
	MetadataBuildTime   = "source_magento_bt" // 店铺元数据中的增量水位
	ProductTypeSimple   = "simple"
	ProductTypeConfig   = "configurable"
	DefaultProfileType  = "default"
	DefaultShippingName = "Default Shipping Profile"
)

// Metadata 实体上的附加键值，外部 id 只通过这里关联
type Metadata map[string]string

// ExternalID 返回 magento_id，不存在时为空串
func (m Metadata) ExternalID() string {
	if m == nil {
		return ""
	}
	return m[MetadataExternalID]
}

// Clone 复制一份，避免多个实体共享同一个 map
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func ExternalIDMetadata(id string) Metadata {
	return Metadata{MetadataExternalID: id}
}
