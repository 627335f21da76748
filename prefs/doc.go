// This file is part of Cellforge.
//
// Cellforge is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Cellforge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Cellforge.  If not, see <https://www.gnu.org/licenses/>.

// Package prefs facilitates the storage of preferential values in the
// Cellforge system. Preferences are typed (Bool, Int, Float, String) and are
// associated with a key when added to a Disk instance.
//
//	var budget prefs.Float
//	dsk, _ := prefs.NewDisk(pth)
//	dsk.Add("jit.cache.budgetFraction", &budget)
//	dsk.Load()
//
// Preferences are saved as "key :: value" lines. A preferences file can be
// shared by more than one Disk instance because Save() preserves entries it
// doesn't know about.
//
// Values can also be supplied on the command line as a "key::value; key::value"
// string with PushCommandLineStack(). Command line values override the value
// on disk when Load() is called.
package prefs
