package tensor

import "testing"

func TestNewShape(t *testing.T) {
	t1 := New(2, 3)
	if len(t1.Data) != 6 {
		t.Fatalf("expected 6 elements, got %d", len(t1.Data))
	}
	if len(t1.Shape) != 2 || t1.Shape[0] != 2 || t1.Shape[1] != 3 {
		t.Fatalf("unexpected shape: %v", t1.Shape)
	}
}

func TestAdd(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3}, Shape: []int{3}}
	b := &Tensor{Data: []float64{4, 5, 6}, Shape: []int{3}}
	c, err := Add(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{5, 7, 9}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, c.Data[i], want[i])
		}
	}
}

func TestSub(t *testing.T) {
	a := &Tensor{Data: []float64{4, 5, 6}, Shape: []int{3}}
	b := &Tensor{Data: []float64{1, 2, 3}, Shape: []int{3}}
	c, err := Sub(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{3, 3, 3}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, c.Data[i], want[i])
		}
	}
	if _, err := Sub(a, New(2)); err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestMatMul(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2, 3, 4}, Shape: []int{2, 2}}
	b := &Tensor{Data: []float64{5, 6, 7, 8}, Shape: []int{2, 2}}
	c, err := MatMul(a, b)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{19, 22, 43, 50}
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("at %d, got %f, want %f", i, c.Data[i], want[i])
		}
	}
}

func TestCloneIndependence(t *testing.T) {
	a := New(2, 2)
	a.Data[0] = 1
	b := a.Clone()
	b.Data[0] = 9
	if a.Data[0] != 1 {
		t.Errorf("clone aliases original data")
	}
	b.Shape[0] = 7
	if a.Shape[0] != 2 {
		t.Errorf("clone aliases original shape")
	}
}

func TestScaleAndAddScaled(t *testing.T) {
	a := &Tensor{Data: []float64{1, 2}, Shape: []int{2}}
	a.Scale(2)
	if a.Data[0] != 2 || a.Data[1] != 4 {
		t.Fatalf("unexpected Scale result: %v", a.Data)
	}
	b := &Tensor{Data: []float64{10, 20}, Shape: []int{2}}
	if err := a.AddScaled(0.5, b); err != nil {
		t.Fatal(err)
	}
	if a.Data[0] != 7 || a.Data[1] != 14 {
		t.Fatalf("unexpected AddScaled result: %v", a.Data)
	}
	if err := a.AddScaled(1, New(3)); err == nil {
		t.Error("expected shape mismatch error")
	}
}
