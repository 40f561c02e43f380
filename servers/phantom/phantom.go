// Package phantom hosts tools operating on segmented MRI phantoms: flattening
// a segmented phantom into voxel-wise parameter maps, and looking up phantom
// datasets on disk.
package phantom

import (
	"fmt"

	toolapi "github.com/mrxlab/go-toolapi"
)

// ParameterMaps are the voxel-wise maps obtained by flattening a segmented
// phantom: the summed proton density plus the density-weighted averages of
// the per-tissue properties.
type ParameterMaps struct {
	PD     toolapi.Volume
	T1     toolapi.Volume
	T2     toolapi.Volume
	T2Dash toolapi.Volume
	ADC    toolapi.Volume
	DB0    toolapi.Volume
}

// Flatten collapses the tissue compartments of a segmented phantom into
// voxel-wise parameter maps. Per voxel, every scalar property is averaged
// over the compartments weighted by their density; voxels with no density
// keep zeroed parameters. Converting back is lossy by design.
func Flatten(p toolapi.SegmentedPhantom) (ParameterMaps, error) {
	if len(p.Tissues) == 0 {
		return ParameterMaps{}, fmt.Errorf("phantom has no tissues")
	}

	ref := p.Tissues[0].Density
	voxels := int(ref.Shape[0] * ref.Shape[1] * ref.Shape[2])

	pd := make([]float64, voxels)
	db0 := make([]float64, voxels)
	t1 := make([]float64, voxels)
	t2 := make([]float64, voxels)
	t2dash := make([]float64, voxels)
	adc := make([]float64, voxels)

	for ti, tissue := range p.Tissues {
		density, err := floatSamples(tissue.Density, voxels)
		if err != nil {
			return ParameterMaps{}, fmt.Errorf("tissue %d density: %w", ti, err)
		}
		if tissue.Density.Shape != ref.Shape {
			return ParameterMaps{}, fmt.Errorf("tissue %d: shape %v does not match %v",
				ti, tissue.Density.Shape, ref.Shape)
		}
		offRes, err := floatSamples(tissue.DB0, voxels)
		if err != nil {
			return ParameterMaps{}, fmt.Errorf("tissue %d db0: %w", ti, err)
		}

		for i := 0; i < voxels; i++ {
			pd[i] += density[i]
			db0[i] += density[i] * offRes[i]
			t1[i] += density[i] * tissue.T1
			t2[i] += density[i] * tissue.T2
			t2dash[i] += density[i] * tissue.T2Dash
			adc[i] += density[i] * tissue.ADC
		}
	}
	for i := 0; i < voxels; i++ {
		if pd[i] > 0 {
			db0[i] /= pd[i]
			t1[i] /= pd[i]
			t2[i] /= pd[i]
			t2dash[i] /= pd[i]
			adc[i] /= pd[i]
		}
	}

	maps := ParameterMaps{}
	for _, m := range []struct {
		dest *toolapi.Volume
		data []float64
	}{
		{&maps.PD, pd},
		{&maps.T1, t1},
		{&maps.T2, t2},
		{&maps.T2Dash, t2dash},
		{&maps.ADC, adc},
		{&maps.DB0, db0},
	} {
		vol, err := floatVolume(ref, m.data)
		if err != nil {
			return ParameterMaps{}, err
		}
		*m.dest = vol
	}
	return maps, nil
}

// floatSamples extracts a volume's data as floats, checking the voxel count.
func floatSamples(vol toolapi.Volume, voxels int) ([]float64, error) {
	if vol.Data.Elem() != toolapi.KindFloat {
		return nil, fmt.Errorf("expected float samples, got %s", vol.Data.Elem())
	}
	if vol.Data.Len() != voxels {
		return nil, fmt.Errorf("expected %d samples, got %d", voxels, vol.Data.Len())
	}
	out := make([]float64, voxels)
	for i := range out {
		out[i] = float64(vol.Data.At(i).(toolapi.Float))
	}
	return out, nil
}

// floatVolume builds a volume with the reference's placement and the given
// samples.
func floatVolume(ref toolapi.Volume, data []float64) (toolapi.Volume, error) {
	items := make([]toolapi.Value, len(data))
	for i, f := range data {
		items[i] = toolapi.Float(f)
	}
	list, err := toolapi.NewTypedList(toolapi.KindFloat, items)
	if err != nil {
		return toolapi.Volume{}, err
	}
	return toolapi.Volume{Shape: ref.Shape, Affine: ref.Affine, Data: list}, nil
}
