package media

import "context"

// MockUploader permite tests sin llamar a un blob store real.
type MockUploader struct {
	Refs  []Ref
	Calls int
	Err   error
}

func (m *MockUploader) Upload(ctx context.Context, up Upload) (Ref, error) {
	m.Calls++
	if m.Err != nil {
		return Ref{}, m.Err
	}
	if len(m.Refs) > 0 {
		ref := m.Refs[0]
		if len(m.Refs) > 1 {
			m.Refs = m.Refs[1:]
		}
		return ref, nil
	}
	return Ref{URL: "https://media.example/" + up.FileName, Kind: kindFromContentType(up.ContentType)}, nil
}
