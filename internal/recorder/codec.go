package recorder

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/livepanels/internal/placement"
	"github.com/banshee-data/livepanels/internal/surface"
)

// frameBlobVersion is bumped when frameBlob changes incompatibly.
const frameBlobVersion = 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("recorder: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("recorder: CBOR decoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("recorder: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("recorder: zstd decoder initialization failed: " + err.Error())
	}
}

type vec3 [3]float64

// quat4 is stored x, y, z, w like the placement schema.
type quat4 [4]float64

func toVec3(v r3.Vec) vec3 { return vec3{v.X, v.Y, v.Z} }

func (v vec3) r3() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func toQuat4(q r3.Rotation) quat4 { return quat4{q.Imag, q.Jmag, q.Kmag, q.Real} }

func (q quat4) rotation() r3.Rotation {
	return r3.Rotation{Imag: q[0], Jmag: q[1], Kmag: q[2], Real: q[3]}
}

type hitBlob struct {
	Tag         int   `cbor:"g"`
	Position    vec3  `cbor:"p"`
	Orientation quat4 `cbor:"q"`
}

type planeBlob struct {
	ID          string `cbor:"id,omitempty"`
	Position    vec3   `cbor:"p"`
	Orientation quat4  `cbor:"q"`
	Polygon     []vec3 `cbor:"poly,omitempty"`
}

// frameBlob is the compact per-frame payload: the tracker input plus the
// selected placement.
type frameBlob struct {
	Version        int               `cbor:"v"`
	TimeNanos      int64             `cbor:"t"`
	CameraPosition vec3              `cbor:"cp"`
	CameraForward  vec3              `cbor:"cf"`
	Hits           []hitBlob         `cbor:"h,omitempty"`
	Planes         []planeBlob       `cbor:"pl,omitempty"`
	HitTest        bool              `cbor:"ht"`
	PlaneDetection bool              `cbor:"pd"`
	Selected       *placement.Record `cbor:"sel,omitempty"`
}

func newFrameBlob(f surface.Frame, res surface.Result) frameBlob {
	b := frameBlob{
		Version:        frameBlobVersion,
		TimeNanos:      f.Time.UnixNano(),
		CameraPosition: toVec3(f.Camera.Position),
		CameraForward:  toVec3(f.Camera.Forward),
		HitTest:        f.HitTestSupported,
		PlaneDetection: f.PlaneDetectionSupported,
	}
	for _, h := range f.Hits {
		b.Hits = append(b.Hits, hitBlob{Tag: int(h.Tag), Position: toVec3(h.Position), Orientation: toQuat4(h.Orientation)})
	}
	for _, p := range f.Planes {
		pb := planeBlob{ID: p.ID, Position: toVec3(p.Position), Orientation: toQuat4(p.Orientation)}
		for _, v := range p.Polygon {
			pb.Polygon = append(pb.Polygon, toVec3(v))
		}
		b.Planes = append(b.Planes, pb)
	}
	if res.HasPlacement {
		rec := placement.ToRecord(res.Placement)
		b.Selected = &rec
	}
	return b
}

func (b frameBlob) frame() surface.Frame {
	f := surface.Frame{
		Time:                    time.Unix(0, b.TimeNanos).UTC(),
		Camera:                  surface.Camera{Position: b.CameraPosition.r3(), Forward: b.CameraForward.r3()},
		HitTestSupported:        b.HitTest,
		PlaneDetectionSupported: b.PlaneDetection,
	}
	for _, h := range b.Hits {
		f.Hits = append(f.Hits, surface.RayHit{Tag: surface.RayTag(h.Tag), Position: h.Position.r3(), Orientation: h.Orientation.rotation()})
	}
	for _, p := range b.Planes {
		dp := surface.DetectedPlane{ID: p.ID, Position: p.Position.r3(), Orientation: p.Orientation.rotation()}
		for _, v := range p.Polygon {
			dp.Polygon = append(dp.Polygon, v.r3())
		}
		f.Planes = append(f.Planes, dp)
	}
	return f
}

// EncodeFrame serializes a tracker frame and its result as zstd-compressed
// CBOR.
func EncodeFrame(f surface.Frame, res surface.Result) ([]byte, error) {
	raw, err := encMode.Marshal(newFrameBlob(f, res))
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

// DecodeFrame reverses EncodeFrame. selected is false when the frame had no
// placement or the stored one is unusable.
func DecodeFrame(blob []byte) (f surface.Frame, sel placement.Placement, selected bool, err error) {
	raw, err := zstdDecoder.DecodeAll(blob, nil)
	if err != nil {
		return surface.Frame{}, placement.Placement{}, false, fmt.Errorf("zstd decompress: %w", err)
	}
	var b frameBlob
	if err := decMode.Unmarshal(raw, &b); err != nil {
		return surface.Frame{}, placement.Placement{}, false, fmt.Errorf("decode frame: %w", err)
	}
	if b.Version != frameBlobVersion {
		return surface.Frame{}, placement.Placement{}, false, fmt.Errorf("decode frame: unsupported version %d", b.Version)
	}
	if b.Selected != nil {
		sel, selected = placement.FromRecord(*b.Selected)
	}
	return b.frame(), sel, selected, nil
}
